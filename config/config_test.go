package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", conf.Env)
	assert.Equal(t, ":8080", conf.Server.Addr)
	assert.Equal(t, DriverRedis, conf.Store.Driver)
	assert.Equal(t, "localhost:6379", conf.Redis.Addr)
	assert.Equal(t, "info", conf.Log.Level)
	assert.False(t, conf.Debug)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TUITION_STORE_DRIVER", "memory")
	t.Setenv("TUITION_SERVER_ADDR", ":9090")
	t.Setenv("TUITION_REDIS_DB", "3")
	t.Setenv("TUITION_DEBUG", "true")
	t.Setenv("TUITION_AUTH_JWT_SECRET", "s3cret")

	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, conf.Store.Driver)
	assert.Equal(t, ":9090", conf.Server.Addr)
	assert.Equal(t, 3, conf.Redis.DB)
	assert.True(t, conf.Debug)
	assert.Equal(t, "s3cret", conf.Auth.JWTSecret)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuition.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\npostgres:\n  dsn: postgres://db/tuition\n"), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, conf.Store.Driver)
	assert.Equal(t, "postgres://db/tuition", conf.Postgres.DSN)

	t.Setenv("TUITION_STORE_DRIVER", "memory")
	conf, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, conf.Store.Driver, "environment wins over the file")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("TUITION_STORE_DRIVER", "mongo")
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
