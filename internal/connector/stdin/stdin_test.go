package stdin

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/patrolaudit/internal/connector"
)

func TestFetch(t *testing.T) {
	src := New(strings.NewReader("03/14/2025 22:00 INICIO RONDA PORTARIA"))
	text, err := src.Fetch(context.Background(), connector.SourceConfig{Location: "-"})
	require.NoError(t, err)
	assert.Equal(t, "03/14/2025 22:00 INICIO RONDA PORTARIA", text)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestFetchReadError(t *testing.T) {
	_, err := New(failingReader{}).Fetch(context.Background(), connector.SourceConfig{})
	assert.ErrorContains(t, err, "pipe closed")
}

func TestFetchCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(pr).Fetch(ctx, connector.SourceConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistered(t *testing.T) {
	_, err := connector.Get("stdin")
	assert.NoError(t, err)
}
