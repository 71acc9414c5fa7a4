// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the backend bucket pool, chunk size, balancing
// strategy and the metadata store.
package config
