// Package preflight provides readiness checks for the external pieces
// chemdrive depends on: the device-server binary, the per-user data
// directories, and the ntfy endpoint when notifications are enabled.
//
// The daemon runs the full set at startup and logs failures without
// refusing to start; the CLI "chemdrive status" command renders the same
// results so the operator can see what is missing before launching a rig.
package preflight
