// Package config handles configuration loading for playfabexport.
//
// Values are layered, later sources winning:
//   - YAML file (optional, ${VAR} syntax expanded from the environment)
//   - PLAYFAB_* environment variables (title id, secret key, API settings)
//   - command-line flags
//
// Finalize applies defaults and validates; every validation failure is a
// *ConfigurationError.
package config
