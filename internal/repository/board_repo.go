package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

type BoardRepo struct {
	pool *pgxpool.Pool
}

func NewBoardRepo(pool *pgxpool.Pool) *BoardRepo {
	return &BoardRepo{pool: pool}
}

// FindByShareToken returns the board addressed by a share token.
func (r *BoardRepo) FindByShareToken(ctx context.Context, token string) (*model.Board, error) {
	var b model.Board
	err := r.pool.QueryRow(ctx, `
		SELECT id, share_token, name, owner_id, visibility,
		       allow_anonymous_votes, voting_enabled, created_at
		FROM boards
		WHERE share_token = $1`, token).Scan(
		&b.ID, &b.ShareToken, &b.Name, &b.OwnerID, &b.Visibility,
		&b.AllowAnonymousVotes, &b.VotingEnabled, &b.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// FindItem returns a board item only if it belongs to the given board.
func (r *BoardRepo) FindItem(ctx context.Context, boardID, itemID string) (*model.BoardItem, error) {
	var it model.BoardItem
	err := r.pool.QueryRow(ctx, `
		SELECT id, board_id, url, title, thumbnail_url, created_at
		FROM board_items
		WHERE id = $1 AND board_id = $2`, itemID, boardID).Scan(
		&it.ID, &it.BoardID, &it.URL, &it.Title, &it.ThumbnailURL, &it.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

// ListItems returns every item on a board, oldest first.
func (r *BoardRepo) ListItems(ctx context.Context, boardID string) ([]model.BoardItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, board_id, url, title, thumbnail_url, created_at
		FROM board_items
		WHERE board_id = $1
		ORDER BY created_at, id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.BoardItem{}
	for rows.Next() {
		var it model.BoardItem
		if err := rows.Scan(&it.ID, &it.BoardID, &it.URL, &it.Title, &it.ThumbnailURL, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// FindVote returns the voter's existing vote on an item. A non-empty userID
// takes precedence over the voter token.
func (r *BoardRepo) FindVote(ctx context.Context, itemID, userID, voterToken string) (*model.BoardVote, error) {
	query := `
		SELECT id, board_item_id, verdict, COALESCE(user_id, ''), COALESCE(voter_token, ''),
		       ip_address, created_at, updated_at
		FROM board_votes
		WHERE board_item_id = $1 AND voter_token = $2`
	voter := voterToken
	if userID != "" {
		query = `
		SELECT id, board_item_id, verdict, COALESCE(user_id, ''), COALESCE(voter_token, ''),
		       ip_address, created_at, updated_at
		FROM board_votes
		WHERE board_item_id = $1 AND user_id = $2`
		voter = userID
	}

	var v model.BoardVote
	err := r.pool.QueryRow(ctx, query, itemID, voter).Scan(
		&v.ID, &v.BoardItemID, &v.Verdict, &v.UserID, &v.VoterToken,
		&v.IPAddress, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// InsertVote records a new board vote. Returns ErrDuplicateVote if the voter
// already has one on the item.
func (r *BoardRepo) InsertVote(ctx context.Context, v model.BoardVote) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO board_votes (board_item_id, verdict, user_id, voter_token, ip_address)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`,
		v.BoardItemID, string(v.Verdict), v.UserID, v.VoterToken, v.IPAddress)
	switch {
	case isUniqueViolation(err):
		return ErrDuplicateVote
	case isForeignKeyViolation(err):
		return ErrNotFound
	}
	return err
}

// UpdateVerdict replaces the verdict of an existing board vote.
func (r *BoardRepo) UpdateVerdict(ctx context.Context, voteID int64, verdict model.Verdict, ip string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE board_votes SET verdict = $2, ip_address = $3, updated_at = NOW()
		WHERE id = $1`, voteID, string(verdict), ip)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TallyItem counts the votes on a single board item.
func (r *BoardRepo) TallyItem(ctx context.Context, itemID string) (model.Totals, error) {
	var t model.Totals
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE verdict = 'craft'),
		       COUNT(*) FILTER (WHERE verdict = 'crap')
		FROM board_votes
		WHERE board_item_id = $1`, itemID).Scan(&t.Craft, &t.Crap)
	return t, err
}

// TallyBoard counts the votes on every item of a board, keyed by item id.
// Items without votes are absent from the map.
func (r *BoardRepo) TallyBoard(ctx context.Context, boardID string) (map[string]model.Totals, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bv.board_item_id,
		       COUNT(*) FILTER (WHERE bv.verdict = 'craft'),
		       COUNT(*) FILTER (WHERE bv.verdict = 'crap')
		FROM board_votes bv
		JOIN board_items bi ON bi.id = bv.board_item_id
		WHERE bi.board_id = $1
		GROUP BY bv.board_item_id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tallies := make(map[string]model.Totals)
	for rows.Next() {
		var (
			id string
			t  model.Totals
		)
		if err := rows.Scan(&id, &t.Craft, &t.Crap); err != nil {
			return nil, err
		}
		tallies[id] = t
	}
	return tallies, rows.Err()
}
