// Package notifications delivers daemon events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Server lifecycle and error categories can be toggled separately
// so a quiet topic only carries what the operator asked for.
//
// Extend this package if you need alternative transports; daemon code
// depends only on the simple Service interface.
package notifications
