package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/quorumsec/trustd/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndSorted(t *testing.T) {
	prev := idx.New()
	for range 1000 {
		next := idx.New()
		require.NotEqual(t, prev, next)
		require.Less(t, prev.String(), next.String(), "IDs must sort in creation order")
		prev = next
	}
}

func TestNew_Concurrent(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 200

	var mu sync.Mutex
	seen := make(map[idx.ID]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				id := idx.New()
				mu.Lock()
				require.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestParse(t *testing.T) {
	id := idx.New()

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	parsed, err = idx.Parse("  " + id.String() + "  ")
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	for _, bad := range []string{"", "   ", "not-a-ulid", "0000"} {
		_, err := idx.Parse(bad)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", bad)
	}
}

func TestID_Time(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)
	require.Equal(t, at, id.Time())

	require.True(t, idx.Zero.Time().IsZero())
	require.True(t, idx.Zero.IsZero())
}
