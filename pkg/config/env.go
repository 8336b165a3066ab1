package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every runtime override, e.g. RDR_STORE_PATH
const EnvPrefix = "RDR"

// ApplyEnvironment overlays RDR_* environment variables (optionally from a
// .env file in the working directory) onto the runtime settings. Variables
// that are unset leave the YAML value in place.
func ApplyEnvironment(c *ConfigData) error {
	// A missing .env file is not an error; existing variables are not overridden.
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &c.Runtime); err != nil {
		return &ConfigError{Type: ErrTypeEnv, Message: "invalid runtime environment override", Err: err}
	}
	return nil
}
