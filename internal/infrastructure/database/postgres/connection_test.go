package postgres

import (
	"bank-reports/internal/config"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pgxmockExpectationsNotMetMsg = "pgxmock expectations were not met"

func TestNewConnectionPoolRejectsMissingHost(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "", Name: "bancos"}
	_, err := NewConnectionPool(context.Background(), cfg, logger)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be configured")
}

func TestNewConnectionPoolRejectsMissingDatabaseName(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Name: ""}
	_, err := NewConnectionPool(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestConfigurePool(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "localhost",
		Port: 5432,
		User: "postgres",
		Name: "bancos",
	}

	poolConfig, err := configurePool(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, poolConfig)
	assert.Equal(t, int32(5), poolConfig.MaxConns)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, 1*time.Minute, poolConfig.HealthCheckPeriod)
}
