package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// GetStats returns aggregate statistics from all tables.
func (r *StatsRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM submissions) AS total_submissions,
			(SELECT COUNT(*) FROM votes) AS total_votes,
			(SELECT COUNT(*) FROM boards) AS total_boards,
			(SELECT COUNT(*) FROM board_votes) AS total_board_votes,
			(SELECT COUNT(*) FROM votes WHERE created_at > NOW() - INTERVAL '24 hours') AS votes_24h`

	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalSubmissions, &stats.TotalVotes, &stats.TotalBoards,
		&stats.TotalBoardVotes, &stats.Votes24h,
	)
	if err != nil {
		return nil, err
	}

	catQuery := `
		SELECT category, COUNT(*) AS total
		FROM submissions
		WHERE category IS NOT NULL
		GROUP BY category
		ORDER BY total DESC`

	rows, err := r.pool.Query(ctx, catQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.TopCategories = make(map[string]int)
	for rows.Next() {
		var (
			cat   string
			total int
		)
		if err := rows.Scan(&cat, &total); err != nil {
			return nil, err
		}
		stats.TopCategories[cat] = total
	}
	return &stats, rows.Err()
}
