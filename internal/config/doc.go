// Package config loads Strand server configuration from defaults, an
// optional JSON or YAML file, and STRAND_* environment overrides, applied in
// that order.
package config
