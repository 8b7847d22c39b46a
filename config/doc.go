// Package config handles configuration loading and validation for the
// steering daemon using Viper. Configuration can come from a YAML file or
// environment variables, with sane defaults for everything except the
// backend list.
package config
