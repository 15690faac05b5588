package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

// BoardStore is the board metadata needed by BoardService.
type BoardStore interface {
	FindByShareToken(ctx context.Context, token string) (*model.Board, error)
	FindItem(ctx context.Context, boardID, itemID string) (*model.BoardItem, error)
	ListItems(ctx context.Context, boardID string) ([]model.BoardItem, error)
	TallyBoard(ctx context.Context, boardID string) (map[string]model.Totals, error)
}

// BoardCache holds rendered shared boards keyed by share token.
// *CacheService implements it.
type BoardCache interface {
	GetBoard(ctx context.Context, token string) ([]byte, error)
	SetBoard(ctx context.Context, token string, data any) error
	InvalidateBoard(ctx context.Context, token string) error
}

// BoardService serves shared boards and their votes.
type BoardService struct {
	store    BoardStore
	resolver *identity.Resolver
	ledger   VoteLedger
	cache    BoardCache
}

// NewBoardService creates a BoardService. A nil cache disables caching.
func NewBoardService(store BoardStore, resolver *identity.Resolver, ledger VoteLedger, cache BoardCache) *BoardService {
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	return &BoardService{store: store, resolver: resolver, ledger: ledger, cache: cache}
}

// open returns the shared board for token, rejecting private ones.
func (s *BoardService) open(ctx context.Context, token string) (*model.Board, error) {
	board, err := s.store.FindByShareToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if board.IsPrivate() {
		return nil, ErrBoardPrivate
	}
	return board, nil
}

// Get returns a shared board with the live tally of every item. Visibility
// is always read from the store; only the rendered tallies are cached.
func (s *BoardService) Get(ctx context.Context, token string) (*model.BoardResponse, error) {
	board, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}

	if data, err := s.cache.GetBoard(ctx, token); err != nil {
		log.Warn().Err(err).Msg("cache: get board failed")
	} else if data != nil {
		var resp model.BoardResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			metrics.CacheHit()
			return &resp, nil
		}
	}
	metrics.CacheMiss()

	items, err := s.store.ListItems(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	tallies, err := s.store.TallyBoard(ctx, board.ID)
	if err != nil {
		return nil, err
	}

	resp := &model.BoardResponse{
		Board: *board,
		Items: make([]model.BoardItemResponse, 0, len(items)),
	}
	for _, it := range items {
		t := tallies[it.ID]
		resp.Items = append(resp.Items, model.BoardItemResponse{
			BoardItem:  it,
			TotalCraft: t.Craft,
			TotalCrap:  t.Crap,
		})
	}

	if err := s.cache.SetBoard(ctx, token, resp); err != nil {
		log.Warn().Err(err).Msg("cache: set board failed")
	}
	return resp, nil
}

// Vote records a vote on a board item. Re-votes replace the voter's
// previous verdict.
func (s *BoardService) Vote(ctx context.Context, token string, req model.BoardVoteRequest, idReq identity.Request) (*model.BoardVoteResponse, error) {
	verdict, ok := model.ParseVerdict(req.Verdict)
	if !ok {
		return nil, ErrInvalidVerdict
	}

	board, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}
	if !board.VotingEnabled {
		return nil, ErrVotingDisabled
	}

	item, err := s.store.FindItem(ctx, board.ID, req.ItemID)
	if err != nil {
		return nil, err
	}

	idReq.VoterToken = req.VoterToken
	voter, err := s.resolver.ForBoard(ctx, idReq, board.AllowAnonymousVotes)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Cast(ctx, Ballot{TargetID: item.ID, Verdict: verdict, Voter: voter})
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateBoard(ctx, token); err != nil {
		log.Warn().Err(err).Msg("cache: invalidate board failed")
	}

	return &model.BoardVoteResponse{
		ItemID:     item.ID,
		Verdict:    verdict,
		Updated:    res.Outcome == OutcomeUpdated,
		TotalCraft: res.Totals.Craft,
		TotalCrap:  res.Totals.Crap,
	}, nil
}
