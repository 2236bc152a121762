// Package config loads runtime configuration for the ballot client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see parseFile) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the election backend
//	-t int      request timeout (seconds)
//	-d string   path of the session database
//	-l string   log level (debug, info, warn, error)
//
// # File format
//
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
// Keys are the same in both; durations are strings like "10s" or integer
// nanoseconds. Keys that are absent keep their earlier value.
//
//	{
//	  "server_base_url": "http://localhost:5001/",
//	  "request_timeout": "10s",
//	  "session_db_path": "session.db",
//	  "log_level": "info",
//	  "log_file": "ballot.log"
//	}
package config
