package env

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Host    string        `env:"TEST_HOST" default:"localhost"`
	Port    int           `env:"TEST_PORT" default:"8080"`
	Enabled bool          `env:"TEST_ENABLED" default:"true"`
	Timeout time.Duration `env:"TEST_TIMEOUT" default:"5s"`
	Ratio   float64       `env:"TEST_RATIO"`
	Origins []string      `env:"TEST_ORIGINS"`
	NoDef   string        `env:"TEST_NO_DEF"`
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_HOST", "example.com")
	t.Setenv("TEST_PORT", "9090")
	t.Setenv("TEST_ENABLED", "false")
	t.Setenv("TEST_TIMEOUT", "1m30s")
	t.Setenv("TEST_RATIO", "0.25")
	t.Setenv("TEST_ORIGINS", "a.example, b.example,,")
	t.Setenv("TEST_NO_DEF", "foo")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "example.com", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.InDelta(t, 0.25, cfg.Ratio, 1e-9)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.Origins)
	assert.Equal(t, "foo", cfg.NoDef)
}

func TestLoad_Defaults(t *testing.T) {
	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.Origins)
	assert.Empty(t, cfg.NoDef)
}

func TestLoad_EmptyStringRespected(t *testing.T) {
	t.Setenv("TEST_HOST", "")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("TEST_PORT", "eighty")

	var cfg sampleConfig
	err := Load(&cfg)

	var invalid ErrInvalidValue
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "TEST_PORT", invalid.EnvVar)
	assert.Equal(t, "Port", invalid.Field)
}

func TestLoad_NotStructPointer(t *testing.T) {
	var cfg sampleConfig
	err := Load(cfg)

	var notPtr ErrNotStructPointer
	assert.True(t, errors.As(err, &notPtr))
}

type DBSection struct {
	DSN string `env:"TEST_DSN"`
}

func (d *DBSection) Validate() error {
	if d.DSN == "" {
		return errors.New("TEST_DSN is required")
	}
	return nil
}

type appConfig struct {
	DBSection
	Name string `env:"TEST_APP_NAME" default:"atelier"`
}

func TestLoad_EmbeddedStructValidated(t *testing.T) {
	t.Run("missing nested value fails validation", func(t *testing.T) {
		var cfg appConfig
		assert.EqualError(t, Load(&cfg), "TEST_DSN is required")
	})

	t.Run("embedded fields are loaded", func(t *testing.T) {
		t.Setenv("TEST_DSN", "postgres://localhost/db")

		var cfg appConfig
		require.NoError(t, Load(&cfg))
		assert.Equal(t, "postgres://localhost/db", cfg.DSN)
		assert.Equal(t, "atelier", cfg.Name)
	})
}
