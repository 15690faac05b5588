package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

// ValidCategories are the allowed submission category values.
var ValidCategories = map[string]bool{
	"art":          true,
	"branding":     true,
	"illustration": true,
	"motion":       true,
	"photography":  true,
	"typography":   true,
	"ui":           true,
	"web":          true,
	"3d":           true,
	"other":        true,
}

// CategoryNames lists ValidCategories in display order.
const CategoryNames = "art, branding, illustration, motion, photography, typography, ui, web, 3d, other"

const submissionColumns = `
	id, url, title, thumbnail_url, category, submitted_by,
	total_craft, total_crap, weighted_craft, weighted_crap, craft_score,
	created_at, last_voted_at`

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(
		&s.ID, &s.URL, &s.Title, &s.ThumbnailURL, &s.Category, &s.SubmittedBy,
		&s.TotalCraft, &s.TotalCrap, &s.WeightedCraft, &s.WeightedCrap, &s.CraftScore,
		&s.CreatedAt, &s.LastVotedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// FindByID returns a single submission by id.
func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// FindByURL returns a single submission by its normalized URL.
func (r *SubmissionRepo) FindByURL(ctx context.Context, url string) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE url = $1`, url)
	return scanSubmission(row)
}

// Create inserts a submission unless one with the same URL exists, in which
// case the existing row is returned with created=false.
func (r *SubmissionRepo) Create(ctx context.Context, in model.NewSubmission) (*model.Submission, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO submissions (url, title, thumbnail_url, submitted_by)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (url) DO NOTHING
		RETURNING `+submissionColumns,
		in.URL, in.Title, in.ThumbnailURL, in.SubmittedBy)

	s, err := scanSubmission(row)
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	s, err = r.FindByURL(ctx, in.URL)
	return s, false, err
}

// List returns a page of the public feed.
func (r *SubmissionRepo) List(ctx context.Context, q model.FeedQuery) ([]model.Submission, error) {
	var (
		where []string
		args  []any
	)
	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if q.Sort == model.SortTop {
		query += ` ORDER BY craft_score DESC, created_at DESC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	args = append(args, q.Limit, q.Offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *s)
	}
	return submissions, rows.Err()
}

// SetCategory assigns a category to a submission that has none yet.
// Returns ErrCategoryAlreadySet when one is already present.
func (r *SubmissionRepo) SetCategory(ctx context.Context, id, category string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE submissions SET category = $2
		WHERE id = $1 AND category IS NULL`, id, category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrCategoryAlreadySet
}

// GetTotals returns the current counters of a submission.
func (r *SubmissionRepo) GetTotals(ctx context.Context, id string) (model.Totals, error) {
	return getTotals(ctx, r.pool, id)
}

// UpdateScore stores a recomputed craft score.
func (r *SubmissionRepo) UpdateScore(ctx context.Context, id string, score float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE submissions SET craft_score = $2 WHERE id = $1`, id, score)
	return err
}

// Reconcile recounts total_craft/total_crap from the votes table for every
// submission whose counters drifted. Returns the ids that were repaired.
//
// Drifting rows are locked first and recounted in a second statement, so
// the recount sees every vote committed before the lock was taken. A vote
// still in flight blocks on the lock and applies its increment afterwards.
func (r *SubmissionRepo) Reconcile(ctx context.Context) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT s.id
		FROM submissions s
		WHERE s.total_craft <> (SELECT COUNT(*) FROM votes v WHERE v.submission_id = s.id AND v.verdict = 'craft')
		   OR s.total_crap  <> (SELECT COUNT(*) FROM votes v WHERE v.submission_id = s.id AND v.verdict = 'crap')
		ORDER BY s.id
		FOR NO KEY UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("lock drifted: %w", err)
	}
	locked, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, nil
	}

	rows, err = tx.Query(ctx, `
		UPDATE submissions s
		SET total_craft = (SELECT COUNT(*) FROM votes v WHERE v.submission_id = s.id AND v.verdict = 'craft'),
		    total_crap  = (SELECT COUNT(*) FROM votes v WHERE v.submission_id = s.id AND v.verdict = 'crap')
		WHERE s.id = ANY($1)
		RETURNING s.id`, locked)
	if err != nil {
		return nil, fmt.Errorf("recount: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
