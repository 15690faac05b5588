// Package testutil provides an in-memory store that mirrors the PostgreSQL
// repositories, including their uniqueness rules and sentinel errors.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

type voteKey struct {
	target string
	voter  string
}

// MemStore is safe for concurrent use.
type MemStore struct {
	mu sync.Mutex

	submissions map[string]*model.Submission
	byURL       map[string]string
	votes       []model.Vote
	voteIndex   map[voteKey]int

	boards     map[string]*model.Board
	items      map[string]*model.BoardItem
	boardVotes map[int64]*model.BoardVote
	boardIndex map[voteKey]int64
	nextVoteID int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		submissions: make(map[string]*model.Submission),
		byURL:       make(map[string]string),
		voteIndex:   make(map[voteKey]int),
		boards:      make(map[string]*model.Board),
		items:       make(map[string]*model.BoardItem),
		boardVotes:  make(map[int64]*model.BoardVote),
		boardIndex:  make(map[voteKey]int64),
	}
}

// AddSubmission seeds a submission and returns its id.
func (m *MemStore) AddSubmission(url string) string {
	s, _, _ := m.Create(context.Background(), model.NewSubmission{URL: url})
	return s.ID
}

// AddBoard seeds a board. ID and CreatedAt are filled in when empty.
func (m *MemStore) AddBoard(b model.Board) *model.Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	m.boards[b.ID] = &b
	cp := b
	return &cp
}

// SetBoardVisibility changes the visibility of a seeded board.
func (m *MemStore) SetBoardVisibility(boardID, visibility string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.boards[boardID]; ok {
		b.Visibility = visibility
	}
}

// AddBoardItem seeds an item on a board and returns its id.
func (m *MemStore) AddBoardItem(boardID, url string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.items[id] = &model.BoardItem{ID: id, BoardID: boardID, URL: url, CreatedAt: time.Now()}
	return id
}

// SetTotals overwrites a submission's counters, simulating drift.
func (m *MemStore) SetTotals(id string, t model.Totals) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.submissions[id]; ok {
		s.TotalCraft, s.TotalCrap = t.Craft, t.Crap
	}
}

// Votes returns a copy of every public vote on a submission.
func (m *MemStore) Votes(submissionID string) []model.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Vote
	for _, v := range m.votes {
		if v.SubmissionID == submissionID {
			out = append(out, v)
		}
	}
	return out
}

// BoardVotes returns a copy of every vote on a board item.
func (m *MemStore) BoardVotes(itemID string) []model.BoardVote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BoardVote
	for _, v := range m.boardVotes {
		if v.BoardItemID == itemID {
			out = append(out, *v)
		}
	}
	return out
}

// Score returns a submission's stored craft score.
func (m *MemStore) Score(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.submissions[id]; ok {
		return s.CraftScore
	}
	return 0
}

func publicVoter(userID, fingerprint string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "fingerprint:" + fingerprint
}

func boardVoter(userID, voterToken string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "voter_token:" + voterToken
}

// --- submissions ---

func (m *MemStore) FindByID(_ context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) FindByURL(ctx context.Context, url string) (*model.Submission, error) {
	m.mu.Lock()
	id, ok := m.byURL[url]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.FindByID(ctx, id)
}

func (m *MemStore) Create(_ context.Context, in model.NewSubmission) (*model.Submission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byURL[in.URL]; ok {
		cp := *m.submissions[id]
		return &cp, false, nil
	}

	s := &model.Submission{
		ID:           uuid.NewString(),
		URL:          in.URL,
		Title:        optional(in.Title),
		ThumbnailURL: optional(in.ThumbnailURL),
		SubmittedBy:  optional(in.SubmittedBy),
		CreatedAt:    time.Now(),
	}
	m.submissions[s.ID] = s
	m.byURL[s.URL] = s.ID
	cp := *s
	return &cp, true, nil
}

func (m *MemStore) List(_ context.Context, q model.FeedQuery) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.Submission{}
	for _, s := range m.submissions {
		if q.Category != "" && (s.Category == nil || *s.Category != q.Category) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Sort == model.SortTop && out[i].CraftScore != out[j].CraftScore {
			return out[i].CraftScore > out[j].CraftScore
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Offset >= len(out) {
		return []model.Submission{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemStore) SetCategory(_ context.Context, id, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Category != nil {
		return repository.ErrCategoryAlreadySet
	}
	s.Category = &category
	return nil
}

func (m *MemStore) UpdateScore(_ context.Context, id string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.submissions[id]; ok {
		s.CraftScore = score
	}
	return nil
}

func (m *MemStore) Reconcile(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]model.Totals)
	for _, v := range m.votes {
		counts[v.SubmissionID] = counts[v.SubmissionID].Add(v.Verdict)
	}

	var repaired []string
	for id, s := range m.submissions {
		want := counts[id]
		if s.TotalCraft != want.Craft || s.TotalCrap != want.Crap {
			s.TotalCraft, s.TotalCrap = want.Craft, want.Crap
			repaired = append(repaired, id)
		}
	}
	sort.Strings(repaired)
	return repaired, nil
}

// --- public votes ---

func (m *MemStore) GetTotals(_ context.Context, id string) (model.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return model.Totals{}, repository.ErrNotFound
	}
	return s.Totals(), nil
}

func (m *MemStore) HasVoted(_ context.Context, submissionID, userID, fingerprint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.voteIndex[voteKey{submissionID, publicVoter(userID, fingerprint)}]
	return ok, nil
}

func (m *MemStore) CountVotesFromIP(_ context.Context, submissionID, ip string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.votes {
		if v.SubmissionID == submissionID && v.IPAddress == ip {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) RecordVote(_ context.Context, v model.Vote) (model.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.submissions[v.SubmissionID]
	if !ok {
		return model.Totals{}, repository.ErrNotFound
	}
	key := voteKey{v.SubmissionID, publicVoter(v.UserID, v.Fingerprint)}
	if _, dup := m.voteIndex[key]; dup {
		return model.Totals{}, repository.ErrDuplicateVote
	}

	m.nextVoteID++
	v.ID = m.nextVoteID
	v.CreatedAt = time.Now()
	m.voteIndex[key] = len(m.votes)
	m.votes = append(m.votes, v)

	t := s.Totals().Add(v.Verdict)
	s.TotalCraft, s.TotalCrap = t.Craft, t.Crap
	now := time.Now()
	s.LastVotedAt = &now
	return t, nil
}

// --- boards ---

func (m *MemStore) FindByShareToken(_ context.Context, token string) (*model.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.boards {
		if b.ShareToken == token {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) FindItem(_ context.Context, boardID, itemID string) (*model.BoardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.BoardID != boardID {
		return nil, repository.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *MemStore) ListItems(_ context.Context, boardID string) ([]model.BoardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BoardItem{}
	for _, it := range m.items {
		if it.BoardID == boardID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) FindVote(_ context.Context, itemID, userID, voterToken string) (*model.BoardVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.boardIndex[voteKey{itemID, boardVoter(userID, voterToken)}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m.boardVotes[id]
	return &cp, nil
}

func (m *MemStore) InsertVote(_ context.Context, v model.BoardVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[v.BoardItemID]; !ok {
		return repository.ErrNotFound
	}
	key := voteKey{v.BoardItemID, boardVoter(v.UserID, v.VoterToken)}
	if _, dup := m.boardIndex[key]; dup {
		return repository.ErrDuplicateVote
	}

	m.nextVoteID++
	v.ID = m.nextVoteID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	m.boardVotes[v.ID] = &v
	m.boardIndex[key] = v.ID
	return nil
}

func (m *MemStore) UpdateVerdict(_ context.Context, voteID int64, verdict model.Verdict, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.boardVotes[voteID]
	if !ok {
		return repository.ErrNotFound
	}
	v.Verdict = verdict
	v.IPAddress = ip
	v.UpdatedAt = time.Now()
	return nil
}

func (m *MemStore) TallyItem(_ context.Context, itemID string) (model.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t model.Totals
	for _, v := range m.boardVotes {
		if v.BoardItemID == itemID {
			t = t.Add(v.Verdict)
		}
	}
	return t, nil
}

func (m *MemStore) TallyBoard(_ context.Context, boardID string) (map[string]model.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tallies := make(map[string]model.Totals)
	for _, v := range m.boardVotes {
		if it, ok := m.items[v.BoardItemID]; ok && it.BoardID == boardID {
			tallies[it.ID] = tallies[it.ID].Add(v.Verdict)
		}
	}
	return tallies, nil
}

// --- stats ---

func (m *MemStore) GetStats(_ context.Context) (*model.StatsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.StatsResponse{
		TotalSubmissions: len(m.submissions),
		TotalVotes:       len(m.votes),
		TotalBoards:      len(m.boards),
		TotalBoardVotes:  len(m.boardVotes),
		TopCategories:    make(map[string]int),
	}
	dayAgo := time.Now().Add(-24 * time.Hour)
	for _, v := range m.votes {
		if v.CreatedAt.After(dayAgo) {
			stats.Votes24h++
		}
	}
	for _, s := range m.submissions {
		if s.Category != nil {
			stats.TopCategories[*s.Category]++
		}
	}
	return stats, nil
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
