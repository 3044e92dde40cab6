package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_BODY_BYTES", "STORE_BACKEND", "DATA_FILE", "MQ_BACKEND"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, 4000, cfg.ServerPort)
	assert.Equal(t, int64(2<<20), cfg.MaxBodyBytes)
	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, "userdata.json", cfg.Store.DataFile)
	assert.Equal(t, MQBackendNone, cfg.MQ.Backend)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("DATA_FILE", "/tmp/runs.json")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MQ_BACKEND", "rabbitmq")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, "/tmp/runs.json", cfg.Store.DataFile)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, MQBackendRabbitMQ, cfg.MQ.Backend)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("RUNLOG_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("RUNLOG_TEST_INT", 7))

	t.Setenv("RUNLOG_TEST_INT", " 12 ")
	assert.Equal(t, 12, getEnvInt("RUNLOG_TEST_INT", 7))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("RUNLOG_TEST_BOOL", "yes")
	assert.False(t, getEnvBool("RUNLOG_TEST_BOOL", false))

	t.Setenv("RUNLOG_TEST_BOOL", "1")
	assert.True(t, getEnvBool("RUNLOG_TEST_BOOL", false))
}
