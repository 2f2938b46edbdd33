// Package testing provides shared helpers for scout tests.
package testing

import (
	"testing"

	"github.com/teranos/scout/store"
)

// CreateTestStore opens a flat-file store rooted in a temporary
// directory that is removed when the test finishes.
func CreateTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return s
}
