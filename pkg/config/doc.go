// Package config defines and loads the Switchboard configuration.
//
// Configuration is read from a YAML file, filled in with defaults, overridden
// by SWITCHBOARD_* environment variables, and validated. The config file can
// also be watched at runtime; only the log level is applied live, all other
// settings require a restart.
package config
