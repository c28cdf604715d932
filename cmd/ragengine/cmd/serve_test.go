package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_HasTransportFlag(t *testing.T) {
	cmd := NewRootCmd()

	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	flag := serveCmd.Flags().Lookup("transport")
	assert.NotNil(t, flag)
	assert.Equal(t, "stdio", flag.DefValue)
}

func TestServeCmd_HasSessionFlag(t *testing.T) {
	cmd := NewRootCmd()

	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	flag := serveCmd.Flags().Lookup("session")
	assert.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestVerifyStdinForMCP_ReturnsNilForPipe(t *testing.T) {
	// In test environments stdin is typically redirected from a pipe or
	// /dev/null, not a terminal, so verification should succeed.
	err := verifyStdinForMCP()
	_ = err // either outcome is acceptable depending on how tests are run; must not panic
}

func TestServe_RejectsUnsupportedTransport(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "documents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "documents", "a.txt"), []byte("hello"), 0o644))

	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(oldDir) }()

	t.Setenv("RAGENGINE_EMBEDDER", "static")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := runServe(ctx, "sse", 0)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported transport") || strings.Contains(err.Error(), "open engine"))
}

func TestServeCmd_AddedToRoot(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)

	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serveCmd.Name())
}
