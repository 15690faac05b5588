package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

// MaxVotesPerIP caps anonymous votes from one IP address on one item.
const MaxVotesPerIP = 3

// Outcome classifies a cast vote.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeUpdated     Outcome = "updated"
)

// Ballot is one vote attempt on a target item.
type Ballot struct {
	TargetID string
	Verdict  model.Verdict
	Voter    identity.Identity
}

// VoteResult is the outcome of a ballot together with the item's totals
// after it was applied (or unchanged, for rejected ballots).
type VoteResult struct {
	Outcome Outcome
	Totals  model.Totals
}

// VoteLedger records ballots under a duplicate-vote policy.
// Implementations return ErrNotFound for unknown targets.
type VoteLedger interface {
	Cast(ctx context.Context, b Ballot) (*VoteResult, error)
}

// VoteService drives the public feed and extension voting surfaces.
type VoteService struct {
	resolver    *identity.Resolver
	ledger      VoteLedger
	submissions *SubmissionService
}

func NewVoteService(resolver *identity.Resolver, ledger VoteLedger, submissions *SubmissionService) *VoteService {
	return &VoteService{resolver: resolver, ledger: ledger, submissions: submissions}
}

// CastFeed handles an anonymous-or-signed-in vote from the public feed.
func (s *VoteService) CastFeed(ctx context.Context, req model.VoteRequest, idReq identity.Request) (*VoteResult, error) {
	verdict, ok := model.ParseVerdict(req.Verdict)
	if !ok {
		return nil, ErrInvalidVerdict
	}

	idReq.Fingerprint = req.Fingerprint
	voter, err := s.resolver.ForFeed(ctx, idReq)
	if err != nil {
		return nil, err
	}

	return s.ledger.Cast(ctx, Ballot{TargetID: req.SubmissionID, Verdict: verdict, Voter: voter})
}

// CastExtension handles a token-authenticated vote that names its target by
// URL. The submission is created on first reference.
func (s *VoteService) CastExtension(ctx context.Context, req model.ExtensionVoteRequest, idReq identity.Request) (string, *VoteResult, error) {
	voter, err := s.resolver.ForExtension(ctx, idReq)
	if err != nil {
		return "", nil, err
	}

	verdict, ok := model.ParseVerdict(req.Verdict)
	if !ok {
		return "", nil, ErrInvalidVerdict
	}

	sub, created, err := s.submissions.EnsureByURL(ctx, model.NewSubmission{
		URL:          req.URL,
		ThumbnailURL: req.ImageURL,
		SubmittedBy:  voter.UserID,
	})
	if err != nil {
		return "", nil, err
	}
	if created {
		log.Info().Str("submission_id", sub.ID).Msg("submission created from extension vote")
	}

	res, err := s.ledger.Cast(ctx, Ballot{TargetID: sub.ID, Verdict: verdict, Voter: voter})
	if err != nil {
		return "", nil, fmt.Errorf("cast extension vote: %w", err)
	}
	return sub.ID, res, nil
}
