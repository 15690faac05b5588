package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

// SubmissionVoteStore is the persistence needed by RejectDuplicatePolicy.
// RecordVote must insert the vote and bump the counters atomically and
// return repository.ErrDuplicateVote when the voter already has a vote.
type SubmissionVoteStore interface {
	GetTotals(ctx context.Context, submissionID string) (model.Totals, error)
	HasVoted(ctx context.Context, submissionID, userID, fingerprint string) (bool, error)
	CountVotesFromIP(ctx context.Context, submissionID, ip string) (int, error)
	RecordVote(ctx context.Context, v model.Vote) (model.Totals, error)
}

// RejectDuplicatePolicy accepts at most one vote per voter and submission.
// A second vote is reported as duplicate and changes nothing, even when the
// verdict differs. Anonymous voters are additionally capped at
// MaxVotesPerIP votes per IP address and submission.
type RejectDuplicatePolicy struct {
	store SubmissionVoteStore
	cache *CacheService
}

func NewRejectDuplicatePolicy(store SubmissionVoteStore, cache *CacheService) *RejectDuplicatePolicy {
	return &RejectDuplicatePolicy{store: store, cache: cache}
}

func (p *RejectDuplicatePolicy) Cast(ctx context.Context, b Ballot) (*VoteResult, error) {
	if !b.Verdict.Valid() {
		return nil, ErrInvalidVerdict
	}
	if b.Voter.Kind != identity.KindUser && b.Voter.Kind != identity.KindFingerprint {
		return nil, ErrUnsupportedVoter
	}

	totals, err := p.store.GetTotals(ctx, b.TargetID)
	if err != nil {
		return nil, err
	}

	voted, err := p.store.HasVoted(ctx, b.TargetID, b.Voter.UserID, b.Voter.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("check existing vote: %w", err)
	}
	if voted {
		return &VoteResult{Outcome: OutcomeDuplicate, Totals: totals}, nil
	}

	if b.Voter.Anonymous() {
		n, err := p.store.CountVotesFromIP(ctx, b.TargetID, b.Voter.IP)
		if err != nil {
			return nil, fmt.Errorf("count votes from ip: %w", err)
		}
		if n >= MaxVotesPerIP {
			return &VoteResult{Outcome: OutcomeRateLimited, Totals: totals}, nil
		}
	}

	totals, err = p.store.RecordVote(ctx, model.Vote{
		SubmissionID: b.TargetID,
		Verdict:      b.Verdict,
		UserID:       b.Voter.UserID,
		Fingerprint:  b.Voter.Fingerprint,
		IPAddress:    b.Voter.IP,
	})
	if errors.Is(err, repository.ErrDuplicateVote) {
		// Lost a race against the same voter; report their vote's totals.
		current, terr := p.store.GetTotals(ctx, b.TargetID)
		if terr != nil {
			return nil, terr
		}
		return &VoteResult{Outcome: OutcomeDuplicate, Totals: current}, nil
	}
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.InvalidateSubmission(ctx, b.TargetID); err != nil {
			log.Warn().Err(err).Str("submission_id", b.TargetID).Msg("cache: invalidate submission failed")
		}
	}

	return &VoteResult{Outcome: OutcomeAccepted, Totals: totals}, nil
}
