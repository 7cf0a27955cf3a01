package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestLoggerCarriesComponentField(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf, Level: "debug", Component: "engine"})
	require.NoError(t, err)

	log.Info("pulse loop started", "node", "start-1")

	out := buf.String()
	assert.Contains(t, out, "pulse loop started")
	assert.Contains(t, out, "component=engine")
	assert.Contains(t, out, "node=start-1")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf, Component: "dispatcher"})
	require.NoError(t, err)

	child := log.With("worker", 3)
	child.Info("dispatched")
	log.Info("plain")

	out := buf.String()
	assert.Contains(t, out, "worker=3")
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.NotContains(t, string(lines[1]), "worker=3")
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("goes nowhere")
	log.Error("also nowhere")
}
