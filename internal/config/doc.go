// Package config loads, normalizes, and validates vidtrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a working-directory .env file, and
// honours environment fallbacks such as OPENAI_API_KEY, VIDTRACK_DATABASE_DSN,
// and VIDTRACK_API_TOKEN.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and clear validation errors.
package config
