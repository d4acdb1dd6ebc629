package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundToXDp(t *testing.T) {
	assert.Equal(t, 0.88, RoundToXDp(0.8751, 2))
	assert.Equal(t, 42.0, RoundToXDp(41.6, 0))
}

func TestNextAvailableFilename(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "SESSION.jsonl"), NextAvailableFilename(dir, "SESSION", ".jsonl"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "SESSION.jsonl"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SESSION_1.jsonl"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "SESSION_2.jsonl"), NextAvailableFilename(dir, "SESSION", ".jsonl"))
}
