package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/datagrid/internal/logging"
)

func TestRunConfigError(t *testing.T) {
	t.Setenv("DEFAULT_PER_PAGE", "0")

	logger := logging.New(logging.Config{Level: "error"})
	err := run(context.Background(), &logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
}

func TestRunAppliesLogConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATABASE_URL", "postgres://grid@localhost:5432/grid?sslmode=bogus")

	logger := logging.New(logging.Config{})
	err := run(context.Background(), &logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to database")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}
