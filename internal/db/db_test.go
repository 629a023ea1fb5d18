package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigDefaults(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/pricetracker?sslmode=disable", PoolOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(5), cfg.MaxConns)
	assert.Equal(t, "pricetracker-api", cfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 5*time.Minute, cfg.MaxConnIdleTime)
}

func TestPoolConfigOverrides(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/pricetracker", PoolOptions{MaxConns: 20, ApplicationName: "pricetracker-cli"})
	require.NoError(t, err)

	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, "pricetracker-cli", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigRejectsBadURL(t *testing.T) {
	_, err := poolConfig("postgres://u:p@localhost:notaport/db", PoolOptions{})
	assert.Error(t, err)
}
