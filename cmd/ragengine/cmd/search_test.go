package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSearch_RejectsUnknownMode(t *testing.T) {
	withStaticEmbedder(t)
	root := setupDocumentsFixture(t)

	require.NoError(t, runIndex(context.Background(), newIndexCmd(), root))

	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	err := runSearch(context.Background(), cmd, root, "ragengine indexing", "nonsense", 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown search mode")
}

func TestRunSearch_FindsIndexedContent(t *testing.T) {
	withStaticEmbedder(t)
	root := setupDocumentsFixture(t)

	require.NoError(t, runIndex(context.Background(), newIndexCmd(), root))

	cmd := newSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	err := runSearch(context.Background(), cmd, root, "ragengine indexing", "keyword", 5, false)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}
