// Package config defines the settings shared by the server and the CLI and
// provides helpers to load, validate and save them in YAML format.
//
// Missing optional values are filled with defaults by Validate, so a minimal
// file only needs the token signing secret.
package config
