package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

// BoardVoteStore is the persistence needed by UpsertPolicy.
type BoardVoteStore interface {
	FindVote(ctx context.Context, itemID, userID, voterToken string) (*model.BoardVote, error)
	InsertVote(ctx context.Context, v model.BoardVote) error
	UpdateVerdict(ctx context.Context, voteID int64, verdict model.Verdict, ip string) error
	TallyItem(ctx context.Context, itemID string) (model.Totals, error)
}

// UpsertPolicy keeps one vote per voter and board item, replacing the
// verdict when the voter votes again (last write wins). Tallies are derived
// from the stored votes on every call.
type UpsertPolicy struct {
	store BoardVoteStore
}

func NewUpsertPolicy(store BoardVoteStore) *UpsertPolicy {
	return &UpsertPolicy{store: store}
}

func (p *UpsertPolicy) Cast(ctx context.Context, b Ballot) (*VoteResult, error) {
	if !b.Verdict.Valid() {
		return nil, ErrInvalidVerdict
	}
	if b.Voter.Kind != identity.KindUser && b.Voter.Kind != identity.KindVoterToken {
		return nil, ErrUnsupportedVoter
	}

	outcome, err := p.upsert(ctx, b)
	if errors.Is(err, repository.ErrDuplicateVote) {
		// A concurrent first vote from the same voter won the insert.
		outcome, err = p.upsert(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	totals, err := p.store.TallyItem(ctx, b.TargetID)
	if err != nil {
		return nil, fmt.Errorf("tally board item: %w", err)
	}
	return &VoteResult{Outcome: outcome, Totals: totals}, nil
}

func (p *UpsertPolicy) upsert(ctx context.Context, b Ballot) (Outcome, error) {
	existing, err := p.store.FindVote(ctx, b.TargetID, b.Voter.UserID, b.Voter.VoterToken)
	switch {
	case err == nil:
		if err := p.store.UpdateVerdict(ctx, existing.ID, b.Verdict, b.Voter.IP); err != nil {
			return "", fmt.Errorf("update board vote: %w", err)
		}
		return OutcomeUpdated, nil
	case !errors.Is(err, repository.ErrNotFound):
		return "", fmt.Errorf("find board vote: %w", err)
	}

	err = p.store.InsertVote(ctx, model.BoardVote{
		BoardItemID: b.TargetID,
		Verdict:     b.Verdict,
		UserID:      b.Voter.UserID,
		VoterToken:  b.Voter.VoterToken,
		IPAddress:   b.Voter.IP,
	})
	if err != nil {
		return "", err
	}
	return OutcomeAccepted, nil
}
