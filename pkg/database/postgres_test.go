package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/pkg/config"
)

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "::not a url::"})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := New(context.Background(), config.DatabaseConfig{
		URL:             url,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	defer db.Close()

	status := db.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
}
