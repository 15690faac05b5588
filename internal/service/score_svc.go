package service

import (
	"context"
	"math"
	"time"

	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

// ScoreStore is the persistence needed by ScoreService.
type ScoreStore interface {
	GetTotals(ctx context.Context, submissionID string) (model.Totals, error)
	UpdateScore(ctx context.Context, submissionID string, score float64) error
}

// ScoreService recalculates a submission's craft score after vote changes.
type ScoreService struct {
	store ScoreStore
}

func NewScoreService(store ScoreStore) *ScoreService {
	return &ScoreService{store: store}
}

// WilsonLowerBound returns the lower bound of the 95% Wilson score interval
// for the craft share:
//
//	n = craft + crap
//	score = ((craft + z²/2)/n - z·sqrt(craft·crap/n + z²/4)/n) / (1 + z²/n),  z = 1.96
//
// It ranks 40/50 above 4/5 and is 0 with no votes.
func WilsonLowerBound(t model.Totals) float64 {
	n := float64(t.Count())
	if n == 0 {
		return 0
	}
	up := float64(t.Craft)
	down := float64(t.Crap)

	score := ((up+1.9208)/n - 1.96*math.Sqrt(up*down/n+0.9604)/n) / (1 + 3.8416/n)
	return math.Max(score, 0)
}

// Recalculate recomputes and stores the craft score of one submission.
func (s *ScoreService) Recalculate(ctx context.Context, submissionID string) error {
	start := time.Now()
	defer func() { metrics.ObserveScoreRecalc(time.Since(start)) }()

	totals, err := s.store.GetTotals(ctx, submissionID)
	if err != nil {
		return err
	}
	return s.store.UpdateScore(ctx, submissionID, WilsonLowerBound(totals))
}
