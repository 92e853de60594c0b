package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DUKHOTA_TELEGRAM_TOKEN sets telegram.token.
const EnvPrefix = "DUKHOTA"

// Load loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path, or ./config.yaml when path is empty
// 3. DUKHOTA_* environment variables
//
// A missing ./config.yaml is tolerated; a missing explicit path is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := readConfig(v, path); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func readConfig(v *viper.Viper, path string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Config file not found is okay, we'll use defaults
	}

	return nil
}
