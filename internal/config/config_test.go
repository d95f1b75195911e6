package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "LEDGER_CURRENCY", "LEDGER_MAX_RETRIES", "IDEMPOTENCY_LEASE_SECONDS", "IS_PROD"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.IdempotencyLease)
	assert.False(t, cfg.IsProd)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("LEDGER_CURRENCY", "EUR")
	t.Setenv("LEDGER_MAX_RETRIES", "7")
	t.Setenv("IDEMPOTENCY_LEASE_SECONDS", "5")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("IS_PROD", "true")

	cfg := LoadConfig()

	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.IdempotencyLease)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.IsProd)
}

func TestLoadConfig_InvalidRetriesFallsBack(t *testing.T) {
	t.Setenv("LEDGER_MAX_RETRIES", "-1")
	assert.Equal(t, 3, LoadConfig().MaxRetries)
}

func TestDSNs(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "ledger"}

	assert.Equal(t, "u:p@tcp(h:3306)/ledger?parseTime=true", cfg.MySQLDSN())
	assert.Equal(t, "host=h port=3306 user=u password=p dbname=ledger sslmode=disable", cfg.PostgresDSN())
}
