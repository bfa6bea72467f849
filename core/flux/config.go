package flux

import "github.com/dmitrymomot/flux/core/config"

// Config holds environment-driven settings for a Flux instance.
type Config struct {
	Name          string `env:"FLUX_NAME" envDefault:"default"`
	LogLevel      string `env:"FLUX_LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"FLUX_LOG_FORMAT" envDefault:"text"`
	RecoverPanics bool   `env:"FLUX_RECOVER_PANICS" envDefault:"true"`
	LogCallbacks  bool   `env:"FLUX_LOG_CALLBACKS" envDefault:"false"`
}

// DefaultConfig returns the values Config takes from an empty environment.
func DefaultConfig() Config {
	return Config{
		Name:          "default",
		LogLevel:      "info",
		LogFormat:     "text",
		RecoverPanics: true,
	}
}

// LoadConfig reads Config from the environment (and .env) via core/config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
