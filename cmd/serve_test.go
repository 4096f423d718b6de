package cmd

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServe_UnsupportedTransport(t *testing.T) {
	err := runServe(context.Background(), Config{}, "sse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported transport "sse"`)
}

func TestServeCommand_RejectsInvalidConfig(t *testing.T) {
	cmd := newServeCmd()
	cmd.Flags().String("config", "", "")
	cmd.SetArgs([]string{"--auth-mode=apikey"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown auth mode")
}
