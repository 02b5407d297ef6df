// Package config loads and validates the service configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then ACADREPORT_* environment variables, with later layers winning. The
// loaded Config is passed down explicitly; nothing in this package is read
// through globals after startup.
package config
