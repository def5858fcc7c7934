// Package alerts implements the alert store on top of gorm.
//
// SQLite is the default backend and PostgreSQL is supported for shared
// deployments. Updates use an optimistic version column so two responders
// acting on the same alert cannot overwrite each other's milestones.
package alerts
