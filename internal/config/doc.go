// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to application settings needed by different components while keeping
// configuration details separate from business logic.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, an optional config.yaml in the working directory or
// $TASKLIST_CONFIG_DIR, and TASKLIST_-prefixed environment variables.
package config
