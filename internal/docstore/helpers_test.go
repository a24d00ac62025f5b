package docstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestClient opens a file-backed store in a temporary directory.
func createTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := Open(context.Background(), DefaultURL,
		WithDataDir(t.TempDir()), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// memoryURL returns a URL for a fresh in-memory database.
func memoryURL() string {
	return "sqlite://memory/" + uuid.NewString()
}
