package service

import (
	"context"

	"github.com/LabMasd/craftorcrap-sub000/internal/model"
)

type StatsStore interface {
	GetStats(ctx context.Context) (*model.StatsResponse, error)
}

type StatsService struct {
	store StatsStore
}

func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

// GetStats returns aggregate platform statistics.
func (s *StatsService) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	return s.store.GetStats(ctx)
}
