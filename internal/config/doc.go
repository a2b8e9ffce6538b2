// Package config loads runtime configuration for instalatrack.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c, -config or --config.
//  3. A .env file in the working directory, if present.
//  4. INSTALATRACK_* environment variables.
//  5. Command-line flags, applied by the command that owns them.
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "local_dsn": "instalatrack.db",
//	  "remote_dsn": "postgres://...",
//	  "online_check_interval": "5s",
//	  "auto_sync_interval": "30s"
//	}
//
// Keys missing from the file keep the value of the previous layer.
package config
