package store

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roach88/beehere/internal/testutil"
)

var testEpoch = time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)

// createTestStore creates a fresh on-disk store with a step clock and
// sequential row IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	clock := testutil.NewStepClock(testEpoch, time.Second)
	var n atomic.Int64
	ids := func() string { return fmt.Sprintf("attempt-%d", n.Add(1)) }

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock.Now), WithIDFunc(ids))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func int64Ptr(v int64) *int64 { return &v }
