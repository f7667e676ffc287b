// Package daemon hosts the long-running chemdrive process. It owns the
// device-server supervisor, the recent-projects store, and the
// notification service, and enforces single-instance execution through
// a file lock. The IPC layer talks to the daemon exclusively through
// the methods on Daemon.
package daemon
