package oasgraph

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopLoggerWith(t *testing.T) {
	var logger Logger = NopLogger{}
	assert.Equal(t, logger, logger.With("key", "value"))
}

func TestNewSlogAdapterNilUsesDefault(t *testing.T) {
	assert.NotNil(t, NewSlogAdapter(nil))
}

func TestSlogAdapterForwardsAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogAdapter(slog.New(handler))

	logger.With("component", "catalog").Info("cached document",
		"uri", "https://example.com/apis/petstore")

	out := buf.String()
	assert.Contains(t, out, "cached document")
	assert.Contains(t, out, "component=catalog")
	assert.Contains(t, out, "uri=https://example.com/apis/petstore")
}
