// Package config holds the runtime configuration for gnatsheet.
//
// Configuration is assembled from three layers, later layers winning:
// built-in defaults, an optional .gnatsheet YAML file (current
// directory, then home directory), and CLI flags. The resulting flat
// Config struct is passed through the application via dependency
// injection rather than global state.
package config
