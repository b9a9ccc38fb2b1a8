package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "DATABASE_DSN", "READ_DATABASE_DSN", "RUN_MIGRATIONS", "NOTIFY_TRANSPORT", "KAFKA_BROKERS",
		"OUTBOX_BATCH_SIZE", "OUTBOX_POLL_INTERVAL", "APPORTION_POLICY",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, ":8084", cfg.HTTPAddr)
	assert.Equal(t, cfg.DatabaseDSN, cfg.ReadDSN)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "amqp", cfg.NotifyTransport)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, "even", cfg.ApportionPolicy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("DATABASE_DSN", "postgres://primary/db")
	t.Setenv("READ_DATABASE_DSN", "postgres://replica/db")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("NOTIFY_TRANSPORT", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "-3")
	t.Setenv("NOTIFY_TIMEOUT", "750ms")
	t.Setenv("CHECKOUT_TIMEOUT", "not-a-duration")
	t.Setenv("APPORTION_POLICY", "FIRST")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://replica/db", cfg.ReadDSN)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, "kafka", cfg.NotifyTransport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.OutboxBatchSize)
	assert.Equal(t, 8, cfg.OutboxMaxAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.NotifyTimeout)
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, "first", cfg.ApportionPolicy)
}
