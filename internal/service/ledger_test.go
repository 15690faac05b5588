package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/testutil"
)

func anon(fp, ip string) identity.Identity {
	return identity.Identity{Kind: identity.KindFingerprint, Fingerprint: fp, IP: ip}
}

func user(id, ip string) identity.Identity {
	return identity.Identity{Kind: identity.KindUser, UserID: id, IP: ip}
}

func TestRejectDuplicatePolicy_Scenario(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	item := store.AddSubmission("https://example.com/work")
	ledger := NewRejectDuplicatePolicy(store, nil)

	res, err := ledger.Cast(ctx, Ballot{item, model.VerdictCraft, anon("f1", "1.1.1.1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, model.Totals{Craft: 1, Crap: 0}, res.Totals)

	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCrap, anon("f1", "1.1.1.1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, model.Totals{Craft: 1, Crap: 0}, res.Totals)

	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCrap, anon("f2", "2.2.2.2")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, model.Totals{Craft: 1, Crap: 1}, res.Totals)

	for i := 0; i < MaxVotesPerIP; i++ {
		res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCraft, anon(fmt.Sprintf("shared-%d", i), "9.9.9.9")})
		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, res.Outcome, "vote %d from shared IP", i+1)
	}

	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCraft, anon("shared-new", "9.9.9.9")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRateLimited, res.Outcome)
	assert.Equal(t, model.Totals{Craft: 4, Crap: 1}, res.Totals)
	assert.Len(t, store.Votes(item), 5)
}

func TestRejectDuplicatePolicy_RateLimitBoundary(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	item := store.AddSubmission("https://example.com/a")
	other := store.AddSubmission("https://example.com/b")
	ledger := NewRejectDuplicatePolicy(store, nil)

	for i := 0; i < 3; i++ {
		_, err := ledger.Cast(ctx, Ballot{item, model.VerdictCrap, anon(fmt.Sprintf("fp-%d", i), "10.0.0.1")})
		require.NoError(t, err)
	}

	res, err := ledger.Cast(ctx, Ballot{item, model.VerdictCraft, anon("fp-4", "10.0.0.1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRateLimited, res.Outcome)

	// A different IP on the same item is unaffected.
	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCraft, anon("fp-4", "10.0.0.2")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)

	// The cap is per item.
	res, err = ledger.Cast(ctx, Ballot{other, model.VerdictCraft, anon("fp-5", "10.0.0.1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)

	// Authenticated voters are not IP capped.
	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCraft, user("user_1", "10.0.0.1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
}

func TestRejectDuplicatePolicy_AtMostOneUnderConcurrency(t *testing.T) {
	voters := map[string]identity.Identity{
		"fingerprint": anon("racer", "3.3.3.3"),
		"user":        user("user_racer", "3.3.3.3"),
	}

	for name, voter := range voters {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := testutil.NewMemStore()
			item := store.AddSubmission("https://example.com/race")
			ledger := NewRejectDuplicatePolicy(store, nil)

			const n = 50
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				outcomes = map[Outcome]int{}
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := ledger.Cast(ctx, Ballot{item, model.VerdictCraft, voter})
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					outcomes[res.Outcome]++
					mu.Unlock()
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, outcomes[OutcomeAccepted])
			assert.Equal(t, n-1, outcomes[OutcomeDuplicate])
			assert.Len(t, store.Votes(item), 1)

			totals, err := store.GetTotals(ctx, item)
			require.NoError(t, err)
			assert.Equal(t, model.Totals{Craft: 1}, totals)
		})
	}
}

func TestRejectDuplicatePolicy_CounterConsistency(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	item := store.AddSubmission("https://example.com/count")
	ledger := NewRejectDuplicatePolicy(store, nil)

	rng := rand.New(rand.NewSource(42))
	var want model.Totals
	for i := 0; i < 200; i++ {
		verdict := model.VerdictCraft
		if rng.Intn(2) == 0 {
			verdict = model.VerdictCrap
		}
		// Reuse fingerprints and IPs so some ballots are rejected.
		voter := anon(fmt.Sprintf("fp-%d", rng.Intn(120)), fmt.Sprintf("10.0.%d.1", rng.Intn(40)))

		res, err := ledger.Cast(ctx, Ballot{item, verdict, voter})
		require.NoError(t, err)
		if res.Outcome == OutcomeAccepted {
			want = want.Add(verdict)
		}
		assert.Equal(t, want, res.Totals)
	}

	votes := store.Votes(item)
	assert.Equal(t, want.Count(), len(votes))
	var fromRows model.Totals
	for _, v := range votes {
		fromRows = fromRows.Add(v.Verdict)
	}
	assert.Equal(t, want, fromRows)
}

func TestRejectDuplicatePolicy_Errors(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	item := store.AddSubmission("https://example.com/x")
	ledger := NewRejectDuplicatePolicy(store, nil)

	_, err := ledger.Cast(ctx, Ballot{"00000000-0000-4000-8000-000000000000", model.VerdictCraft, anon("f", "1.1.1.1")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.Cast(ctx, Ballot{item, model.Verdict("meh"), anon("f", "1.1.1.1")})
	assert.ErrorIs(t, err, ErrInvalidVerdict)

	_, err = ledger.Cast(ctx, Ballot{item, model.VerdictCraft, identity.Identity{Kind: identity.KindVoterToken, VoterToken: "tok_12345678"}})
	assert.ErrorIs(t, err, ErrUnsupportedVoter)

	assert.Empty(t, store.Votes(item))
}

func TestUpsertPolicy_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	board := store.AddBoard(model.Board{ShareToken: "share", Visibility: model.VisibilityShared})
	item := store.AddBoardItem(board.ID, "https://example.com/item")
	ledger := NewUpsertPolicy(store)

	voter := identity.Identity{Kind: identity.KindVoterToken, VoterToken: "v_abc123_1700000000", IP: "1.1.1.1"}

	res, err := ledger.Cast(ctx, Ballot{item, model.VerdictCraft, voter})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, model.Totals{Craft: 1}, res.Totals)

	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCrap, voter})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, model.Totals{Crap: 1}, res.Totals)

	votes := store.BoardVotes(item)
	require.Len(t, votes, 1)
	assert.Equal(t, model.VerdictCrap, votes[0].Verdict)

	// A signed-in voter is tracked separately from the token voter.
	res, err = ledger.Cast(ctx, Ballot{item, model.VerdictCraft, user("user_1", "1.1.1.1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, model.Totals{Craft: 1, Crap: 1}, res.Totals)
}

func TestUpsertPolicy_ConcurrentFirstVotes(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	board := store.AddBoard(model.Board{ShareToken: "share", Visibility: model.VisibilityShared})
	item := store.AddBoardItem(board.ID, "https://example.com/item")
	ledger := NewUpsertPolicy(store)
	voter := user("user_1", "1.1.1.1")

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdict := model.VerdictCraft
			if i%2 == 1 {
				verdict = model.VerdictCrap
			}
			_, err := ledger.Cast(ctx, Ballot{item, verdict, voter})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.BoardVotes(item), 1)
	totals, err := store.TallyItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Count())
}

func TestUpsertPolicy_Errors(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	ledger := NewUpsertPolicy(store)

	_, err := ledger.Cast(ctx, Ballot{"missing", model.VerdictCraft, user("u", "1.1.1.1")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.Cast(ctx, Ballot{"missing", model.VerdictCraft, anon("fp", "1.1.1.1")})
	assert.ErrorIs(t, err, ErrUnsupportedVoter)
}
