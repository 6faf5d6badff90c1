// Package config loads the hyperbun command configuration.
//
// Values come from built-in defaults, an optional YAML file and environment
// variables prefixed with HYPERBUN_, later sources overriding earlier ones.
// Nested keys use underscores:
//
//	HYPERBUN_SERVER_PORT=9000
//	HYPERBUN_DATABASE_CONNECTION_TYPE=postgres
//	HYPERBUN_LOGGING_LEVEL=debug
package config
