package tlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetWithoutLogger(t *testing.T) {
	logger := Get(context.Background())
	require.NotNil(t, logger)
	logger.Info("dropped")
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("endpoint", "http://localhost"))

	Get(ctx).Debug("Connecting")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "Connecting", entries[0].Message)
	require.Equal(t, map[string]any{"endpoint": "http://localhost"}, entries[0].ContextMap())
}

func TestFlagValues(t *testing.T) {
	var f Format
	require.NoError(t, f.Set("json"))
	require.Equal(t, FormatJSON, f)
	require.Error(t, f.Set("xml"))

	var c Color
	require.NoError(t, c.Set("auto"))
	require.Equal(t, ColorAuto, c)
	require.Equal(t, "auto", c.String())
	require.NoError(t, c.Set("yes"))
	require.Equal(t, ColorYes, c)
	require.Error(t, c.Set("sometimes"))
}

func TestNew(t *testing.T) {
	require.NotNil(t, New(Config{Format: FormatJSON}))
	require.NotNil(t, New(Config{Format: FormatText, Color: ColorYes, Verbose: true}))
	require.Panics(t, func() { New(Config{Format: "xml"}) })
}
