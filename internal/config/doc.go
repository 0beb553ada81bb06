// Package config loads and validates application configuration from
// environment variables (with .env support for local development).
package config
