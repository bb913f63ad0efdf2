package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"priyom/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReservation(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	owner := seedOwner(t, db, "race@example.com")
	slot := at(9, 0).On(monday)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			results <- db.CreateReservation(ctx, newReservation(owner.ID, slot, secret(id+1)), testNow)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	conflictCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, domain.ErrSlotConflict):
			conflictCount++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount, "only one reservation may win the slot")
	assert.Equal(t, numGoroutines-1, conflictCount)

	active, err := db.ListActiveReservations(ctx, owner.ID, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
