package common

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLoggerLevel(t *testing.T) {
	log := SetupLogger(&LoggingOpts{Debug: false, Service: "registry", Version: Version})
	require.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, log.Enabled(context.Background(), slog.LevelInfo))

	log = SetupLogger(&LoggingOpts{Debug: true, JSON: true})
	require.True(t, log.Enabled(context.Background(), slog.LevelDebug))
}
