// Package ipc carries control traffic between the CLI and the daemon
// over JSON-RPC on a Unix domain socket. Request/response types are
// deliberately flat so the wire format stays stable across versions.
package ipc
