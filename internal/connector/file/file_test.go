package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/patrolaudit/internal/connector"
)

func TestFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "night.txt")
	require.NoError(t, os.WriteFile(path, []byte("03/14/2025 22:00 LOCAL 1\n"), 0o644))

	ctor, err := connector.Get("file")
	require.NoError(t, err)
	text, err := ctor().Fetch(context.Background(), connector.SourceConfig{Location: path})
	require.NoError(t, err)
	assert.Equal(t, "03/14/2025 22:00 LOCAL 1\n", text)
}

func TestFetchMissing(t *testing.T) {
	_, err := (&Source{}).Fetch(context.Background(), connector.SourceConfig{Location: filepath.Join(t.TempDir(), "nope.txt")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFetchNoPath(t *testing.T) {
	_, err := (&Source{}).Fetch(context.Background(), connector.SourceConfig{})
	assert.ErrorContains(t, err, "no path")
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Source{}).Fetch(ctx, connector.SourceConfig{Location: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
