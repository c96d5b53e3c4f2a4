package config_test

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulettehub/subgate/pkg/config"
)

type defaultsConfig struct {
	Name    string `env:"CFGTEST_DEFAULT_NAME" envDefault:"subgate"`
	Retries int    `env:"CFGTEST_DEFAULT_RETRIES" envDefault:"3"`
}

type envConfig struct {
	Name    string `env:"CFGTEST_ENV_NAME" envDefault:"subgate"`
	Enabled bool   `env:"CFGTEST_ENV_ENABLED" envDefault:"false"`
}

type cachedConfig struct {
	Value string `env:"CFGTEST_CACHED_VALUE"`
}

type requiredConfig struct {
	Secret string `env:"CFGTEST_REQUIRED_SECRET,required"`
}

type prefixedConfig struct {
	Addr string `env:"ADDR" envDefault:":8080"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "subgate", cfg.Name)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("CFGTEST_ENV_NAME", "gate")
		t.Setenv("CFGTEST_ENV_ENABLED", "true")

		var cfg envConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "gate", cfg.Name)
		assert.True(t, cfg.Enabled)
	})

	t.Run("cached per type", func(t *testing.T) {
		t.Setenv("CFGTEST_CACHED_VALUE", "first")
		var first cachedConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CFGTEST_CACHED_VALUE", "second")
		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Value)
	})

	t.Run("missing required variable", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)

		t.Setenv("CFGTEST_REQUIRED_SECRET", "s3cret")
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "s3cret", cfg.Secret)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[defaultsConfig](nil), config.ErrNilPointer)
	})
}

func TestParse(t *testing.T) {
	t.Setenv("CFGTEST_PREFIX_ADDR", ":9090")

	var cfg prefixedConfig
	require.NoError(t, config.Parse(&cfg, env.Options{Prefix: "CFGTEST_PREFIX_"}))
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestMustLoad(t *testing.T) {
	assert.NotPanics(t, func() {
		cfg := config.MustLoad[defaultsConfig]()
		assert.Equal(t, "subgate", cfg.Name)
	})
}
