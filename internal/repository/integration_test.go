package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LabMasd/craftorcrap-sub000/internal/db"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

// setupPool connects to TEST_DATABASE_URL and applies the schema. Tests
// using it are skipped when the variable is unset.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func seedSubmission(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()
	sub, created, err := NewSubmissionRepo(pool).Create(ctx, model.NewSubmission{
		URL: "https://example.com/it/" + uuid.NewString(),
	})
	require.NoError(t, err)
	require.True(t, created)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM submissions WHERE id = $1`, sub.ID)
	})
	return sub.ID
}

func countVotes(t *testing.T, pool *pgxpool.Pool, id string) model.Totals {
	t.Helper()
	var c model.Totals
	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FILTER (WHERE verdict = 'craft'), COUNT(*) FILTER (WHERE verdict = 'crap')
		FROM votes WHERE submission_id = $1`, id).Scan(&c.Craft, &c.Crap)
	require.NoError(t, err)
	return c
}

func TestRecordVote_ConcurrentCountersMatchRows(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	id := seedSubmission(t, pool)
	votes := NewVoteRepo(pool)

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdict := model.VerdictCraft
			if i%4 == 0 {
				verdict = model.VerdictCrap
			}
			_, err := votes.RecordVote(ctx, model.Vote{
				SubmissionID: id,
				Verdict:      verdict,
				Fingerprint:  fmt.Sprintf("fp-%d", i),
				IPAddress:    fmt.Sprintf("10.0.0.%d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	totals, err := votes.GetTotals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Craft: 30, Crap: 10}, totals)
	assert.Equal(t, countVotes(t, pool, id), totals)
}

func TestRecordVote_DuplicateLeavesCounters(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	id := seedSubmission(t, pool)
	votes := NewVoteRepo(pool)

	v := model.Vote{SubmissionID: id, Verdict: model.VerdictCraft, Fingerprint: "fp-dup", IPAddress: "10.1.1.1"}
	totals, err := votes.RecordVote(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Craft: 1}, totals)

	v.Verdict = model.VerdictCrap
	_, err = votes.RecordVote(ctx, v)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	totals, err = votes.GetTotals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Craft: 1}, totals)

	_, err = votes.RecordVote(ctx, model.Vote{SubmissionID: uuid.NewString(), Verdict: model.VerdictCraft, Fingerprint: "fp-x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	id := seedSubmission(t, pool)
	votes := NewVoteRepo(pool)
	subs := NewSubmissionRepo(pool)

	for i := 0; i < 3; i++ {
		_, err := votes.RecordVote(ctx, model.Vote{SubmissionID: id, Verdict: model.VerdictCraft, Fingerprint: fmt.Sprintf("fp-r%d", i)})
		require.NoError(t, err)
	}
	_, err := pool.Exec(ctx, `UPDATE submissions SET total_craft = 0, total_crap = 7 WHERE id = $1`, id)
	require.NoError(t, err)

	repaired, err := subs.Reconcile(ctx)
	require.NoError(t, err)
	assert.Contains(t, repaired, id)

	totals, err := subs.GetTotals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Craft: 3}, totals)
}

func TestReconcile_ConcurrentWithVotes(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	id := seedSubmission(t, pool)
	votes := NewVoteRepo(pool)
	subs := NewSubmissionRepo(pool)

	const n = 30
	var wg sync.WaitGroup
	done := make(chan struct{})
	reconcileErr := make(chan error, 1)
	go func() {
		defer close(reconcileErr)
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, err := subs.Reconcile(ctx); err != nil {
				reconcileErr <- err
				return
			}
		}
	}()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := votes.RecordVote(ctx, model.Vote{SubmissionID: id, Verdict: model.VerdictCraft, Fingerprint: fmt.Sprintf("fp-c%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	close(done)
	require.NoError(t, <-reconcileErr)

	totals, err := subs.GetTotals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Craft: n}, totals)
	assert.Equal(t, countVotes(t, pool, id), totals)
}
