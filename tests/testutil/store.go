package testutil

import (
	"context"
	"testing"

	"github.com/nhle/paperless-upload/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// ImportTestMessage stores raw in s and returns the new message id.
func ImportTestMessage(t *testing.T, s *store.SQLiteStore, raw string) string {
	t.Helper()

	id, err := s.ImportMessage(context.Background(), []byte(raw))
	if err != nil {
		t.Fatalf("importing test message: %v", err)
	}
	return id
}
