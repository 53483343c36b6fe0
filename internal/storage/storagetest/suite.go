// Package storagetest is a conformance suite shared by the session backends.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/internal/core/service"
)

// Factory returns an empty repository. Cleanup is registered on t.
type Factory func(t *testing.T) service.SessionRepository

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, newRepo(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newRepo(t)) })
	t.Run("PutReplaces", func(t *testing.T) { testPutReplaces(t, newRepo(t)) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, newRepo(t)) })
	t.Run("DeleteCreatedBefore", func(t *testing.T) { testDeleteCreatedBefore(t, newRepo(t)) })
	t.Run("Concurrent", func(t *testing.T) { testConcurrent(t, newRepo(t)) })
}

func newRecord(t *testing.T, created time.Time) *domain.Session {
	t.Helper()
	id, err := domain.NewSessionID()
	require.NoError(t, err)
	return &domain.Session{ID: id, Claims: "Y2xhaW1z", CreatedAt: created.UnixMilli()}
}

func testPutGet(t *testing.T, repo service.SessionRepository) {
	ctx := context.Background()
	rec := newRecord(t, epoch)

	require.NoError(t, repo.Put(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	got.Claims = "mutated"
	again, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Y2xhaW1z", again.Claims, "Get must return a copy")
}

func testGetMissing(t *testing.T, repo service.SessionRepository) {
	id, err := domain.NewSessionID()
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func testPutReplaces(t *testing.T, repo service.SessionRepository) {
	ctx := context.Background()
	rec := newRecord(t, epoch)
	require.NoError(t, repo.Put(ctx, rec))

	updated := *rec
	updated.Claims = "dXBkYXRlZA=="
	require.NoError(t, repo.Put(ctx, &updated))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "dXBkYXRlZA==", got.Claims)
}

func testDeleteIdempotent(t *testing.T, repo service.SessionRepository) {
	ctx := context.Background()
	rec := newRecord(t, epoch)
	require.NoError(t, repo.Put(ctx, rec))

	require.NoError(t, repo.Delete(ctx, rec.ID))
	require.NoError(t, repo.Delete(ctx, rec.ID))

	_, err := repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func testDeleteCreatedBefore(t *testing.T, repo service.SessionRepository) {
	ctx := context.Background()
	cutoff := epoch

	old := []*domain.Session{
		newRecord(t, cutoff.Add(-48*time.Hour)),
		newRecord(t, cutoff.Add(-time.Millisecond)),
	}
	fresh := []*domain.Session{
		newRecord(t, cutoff),
		newRecord(t, cutoff.Add(time.Hour)),
	}
	for _, rec := range append(append([]*domain.Session{}, old...), fresh...) {
		require.NoError(t, repo.Put(ctx, rec))
	}

	n, err := repo.DeleteCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, len(old), n)

	for _, rec := range old {
		_, err := repo.Get(ctx, rec.ID)
		require.ErrorIs(t, err, domain.ErrSessionNotFound, "old record %s", rec.ID)
	}
	for _, rec := range fresh {
		_, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err, "fresh record %s", rec.ID)
	}

	n, err = repo.DeleteCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Zero(t, n, "second sweep must delete nothing")
}

func testConcurrent(t *testing.T, repo service.SessionRepository) {
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				rec := newRecord(t, epoch)
				if err := repo.Put(ctx, rec); err != nil {
					errs <- err
					return
				}
				if _, err := repo.Get(ctx, rec.ID); err != nil {
					errs <- fmt.Errorf("get %s: %w", rec.ID, err)
					return
				}
				if err := repo.Delete(ctx, rec.ID); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
