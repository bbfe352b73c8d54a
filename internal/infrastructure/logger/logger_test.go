package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("builds a json logger", func(t *testing.T) {
		log, err := New(Config{Level: "info", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("builds a console logger", func(t *testing.T) {
		log, err := New(Config{Level: "debug", Format: "console", Output: "stderr"})
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("rejects an unknown level", func(t *testing.T) {
		_, err := New(Config{Level: "verbose"})
		assert.Error(t, err)
	})

	t.Run("empty config falls back to info on stdout", func(t *testing.T) {
		log, err := New(Config{})
		require.NoError(t, err)
		assert.NotNil(t, log)
	})
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "prod", "development", ""} {
		log, err := NewForEnvironment(env)
		require.NoError(t, err, env)
		assert.NotNil(t, log, env)
	}
}

func TestParseGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, ParseGormLogLevel("info"))
	assert.Equal(t, gormlogger.Error, ParseGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, ParseGormLogLevel("anything-else"))
}

func TestNewGormLogger(t *testing.T) {
	log, err := New(Config{Level: "warn"})
	require.NoError(t, err)

	gl := NewGormLogger(log, gormlogger.Warn, WithSlowThreshold(50*time.Millisecond))
	require.NotNil(t, gl)
	assert.Equal(t, 50*time.Millisecond, gl.slowThreshold)
}
