package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

// CategoryStore is the persistence needed by CategoryService. SetCategory
// must only succeed while the submission has no category.
type CategoryStore interface {
	SetCategory(ctx context.Context, id, category string) error
}

// CategoryService assigns a submission's category exactly once.
type CategoryService struct {
	store CategoryStore
	cache *CacheService
}

func NewCategoryService(store CategoryStore, cache *CacheService) *CategoryService {
	return &CategoryService{store: store, cache: cache}
}

// Assign sets the category of a submission that has none. Returns
// ErrCategoryAlreadySet once a category is present.
func (s *CategoryService) Assign(ctx context.Context, submissionID, category string) error {
	category = strings.ToLower(strings.TrimSpace(category))
	if !repository.ValidCategories[category] {
		return ErrInvalidCategory
	}

	if err := s.store.SetCategory(ctx, submissionID, category); err != nil {
		return err
	}

	if err := s.cache.InvalidateSubmission(ctx, submissionID); err != nil {
		log.Warn().Err(err).Str("submission_id", submissionID).Msg("cache: invalidate submission failed")
	}
	return nil
}
