package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZerologLogger_WritesFieldsAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")
	ctx := context.Background()

	log.Debug(ctx, "hidden", "k", 1)
	log.Info(ctx, "sync finished", "kind", "todos", "pushed", 3)
	log.With("device", "d1").Warn(ctx, "offline")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "sync finished")
	assert.Contains(t, out, "kind=todos")
	assert.Contains(t, out, "pushed=3")
	assert.Contains(t, out, "device=d1")
	assert.Contains(t, out, "offline")
}

func TestZerologLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "loud")

	log.Debug(context.Background(), "dbg")
	log.Info(context.Background(), "inf")

	assert.NotContains(t, buf.String(), "dbg")
	assert.Contains(t, buf.String(), "inf")
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, "warn")

	log.Info(context.Background(), "quiet")
	log.Warn(context.Background(), "loud", "n", 1)

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `"msg":"loud"`)
	assert.Contains(t, buf.String(), `"n":1`)
}

func TestNop_DoesNotPanic(t *testing.T) {
	var l Logger = Nop{}
	l.With("a", 1).Info(context.Background(), "x")
	l.Error(context.Background(), "y")
}
