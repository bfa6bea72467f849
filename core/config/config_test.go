package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flux/core/config"
)

type cachedConfig struct {
	Name string `env:"CONFIG_TEST_CACHED_NAME" envDefault:"default"`
}

type requiredConfig struct {
	Value string `env:"CONFIG_TEST_REQUIRED_VALUE,required"`
}

type parsedConfig struct {
	Level string `env:"CONFIG_TEST_LEVEL" envDefault:"info"`
	Debug bool   `env:"CONFIG_TEST_DEBUG"`
}

// Tests mutate the process environment, so they do not run in parallel.

func TestLoadCaches(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("CONFIG_TEST_CACHED_NAME", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	assert.Equal(t, "first", a.Name)

	t.Setenv("CONFIG_TEST_CACHED_NAME", "second")

	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Name, "second load must come from cache")

	config.Reset()
	var c cachedConfig
	require.NoError(t, config.Load(&c))
	assert.Equal(t, "second", c.Name)
}

func TestLoadRequired(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	var cfg requiredConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsing)

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestParse(t *testing.T) {
	t.Setenv("CONFIG_TEST_LEVEL", "debug")
	t.Setenv("CONFIG_TEST_DEBUG", "true")

	var cfg parsedConfig
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.Debug)

	t.Setenv("CONFIG_TEST_DEBUG", "not-a-bool")
	assert.ErrorIs(t, config.Parse(&cfg), config.ErrParsing)
}
