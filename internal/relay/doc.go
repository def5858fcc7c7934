// Package relay implements the live audio relay hub.
//
// The hub keeps an explicit registry of rooms, one per alert, and a table of
// the rooms every connection touched. Each room is guarded by its own mutex;
// different rooms never contend. Frames are pushed to listeners through
// bounded, non-blocking send queues, so a slow listener loses frames instead
// of stalling the broadcaster.
//
// Room state lives only in memory and is rebuilt empty on restart. Dashboards
// must reconcile from the stored alert status at startup: live indicators are
// not recoverable after a restart.
package relay
