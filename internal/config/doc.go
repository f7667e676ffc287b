// Package config loads, normalizes, and validates the chemdrive
// configuration file.
//
// Configuration lives at ~/.config/chemdrive/config.toml by default; a
// chemdrive.toml in the working directory is honored as a project-local
// fallback. All path fields are expanded (~ and relative segments) before
// use, so downstream code can treat them as absolute.
package config
