package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

// VoteChannel is the NOTIFY channel carrying submission ids whose votes changed.
const VoteChannel = "vote_changes"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// GetTotals returns the current counters of a submission.
func (r *VoteRepo) GetTotals(ctx context.Context, submissionID string) (model.Totals, error) {
	return getTotals(ctx, r.pool, submissionID)
}

func getTotals(ctx context.Context, q querier, submissionID string) (model.Totals, error) {
	var t model.Totals
	err := q.QueryRow(ctx, `
		SELECT total_craft, total_crap FROM submissions WHERE id = $1`,
		submissionID).Scan(&t.Craft, &t.Crap)
	return t, notFound(err)
}

// HasVoted reports whether the voter already has a vote on the submission.
// A non-empty userID takes precedence over the fingerprint.
func (r *VoteRepo) HasVoted(ctx context.Context, submissionID, userID, fingerprint string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE submission_id = $1 AND fingerprint = $2)`
	voter := fingerprint
	if userID != "" {
		query = `SELECT EXISTS (SELECT 1 FROM votes WHERE submission_id = $1 AND user_id = $2)`
		voter = userID
	}

	var exists bool
	err := r.pool.QueryRow(ctx, query, submissionID, voter).Scan(&exists)
	return exists, err
}

// CountVotesFromIP returns how many votes on the submission came from ip.
func (r *VoteRepo) CountVotesFromIP(ctx context.Context, submissionID, ip string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM votes WHERE submission_id = $1 AND ip_address = $2`,
		submissionID, ip).Scan(&n)
	return n, err
}

// RecordVote inserts the vote and increments the submission's counter in a
// single transaction, then notifies VoteChannel. A vote that collides with
// an existing one for the same voter returns ErrDuplicateVote and changes
// nothing.
func (r *VoteRepo) RecordVote(ctx context.Context, v model.Vote) (model.Totals, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Totals{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO votes (submission_id, verdict, user_id, fingerprint, ip_address)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`,
		v.SubmissionID, string(v.Verdict), v.UserID, v.Fingerprint, v.IPAddress)
	switch {
	case isUniqueViolation(err):
		return model.Totals{}, ErrDuplicateVote
	case isForeignKeyViolation(err):
		return model.Totals{}, ErrNotFound
	case err != nil:
		return model.Totals{}, fmt.Errorf("insert vote: %w", err)
	}

	totals, err := ApplyVerdict(ctx, tx, v.SubmissionID, v.Verdict)
	if err != nil {
		return model.Totals{}, err
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, VoteChannel, v.SubmissionID); err != nil {
		return model.Totals{}, fmt.Errorf("notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Totals{}, err
	}
	return totals, nil
}

// ApplyVerdict atomically adds one vote of the given verdict to the
// submission's counters and returns the new totals.
func ApplyVerdict(ctx context.Context, q querier, submissionID string, verdict model.Verdict) (model.Totals, error) {
	craft, crap := 0, 0
	switch verdict {
	case model.VerdictCraft:
		craft = 1
	case model.VerdictCrap:
		crap = 1
	default:
		return model.Totals{}, fmt.Errorf("apply verdict: unknown verdict %q", verdict)
	}

	var t model.Totals
	err := q.QueryRow(ctx, `
		UPDATE submissions
		SET total_craft = total_craft + $2,
		    total_crap = total_crap + $3,
		    last_voted_at = NOW()
		WHERE id = $1
		RETURNING total_craft, total_crap`,
		submissionID, craft, crap).Scan(&t.Craft, &t.Crap)
	if err != nil {
		return model.Totals{}, notFound(err)
	}
	return t, nil
}
