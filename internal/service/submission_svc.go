package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LabMasd/craftorcrap-sub000/internal/metrics"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

// Feed paging limits.
const (
	DefaultFeedLimit = 30
	MaxFeedLimit     = 100
	maxURLLen        = 2048
)

// SubmissionStore is the persistence needed by SubmissionService.
type SubmissionStore interface {
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	FindByURL(ctx context.Context, url string) (*model.Submission, error)
	Create(ctx context.Context, in model.NewSubmission) (*model.Submission, bool, error)
	List(ctx context.Context, q model.FeedQuery) ([]model.Submission, error)
}

type SubmissionService struct {
	store SubmissionStore
	cache *CacheService
}

func NewSubmissionService(store SubmissionStore, cache *CacheService) *SubmissionService {
	return &SubmissionService{store: store, cache: cache}
}

// NormalizeURL canonicalizes a submitted URL so the same work is not
// submitted twice under cosmetic variations: the scheme and host are
// lower-cased and the fragment is dropped.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxURLLen {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if u.Host == "" {
		return "", ErrInvalidURL
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// Lookup returns a submission by id, served from cache when possible.
func (s *SubmissionService) Lookup(ctx context.Context, id string) (*model.Submission, error) {
	if data, err := s.cache.GetSubmission(ctx, id); err != nil {
		log.Warn().Err(err).Msg("cache: get submission failed")
	} else if data != nil {
		var sub model.Submission
		if err := json.Unmarshal(data, &sub); err == nil {
			metrics.CacheHit()
			return &sub, nil
		}
	}
	metrics.CacheMiss()

	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetSubmission(ctx, id, sub); err != nil {
		log.Warn().Err(err).Msg("cache: set submission failed")
	}
	return sub, nil
}

// Get returns the API representation of a submission.
func (s *SubmissionService) Get(ctx context.Context, id string) (*model.SubmissionResponse, error) {
	sub, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := model.NewSubmissionResponse(sub)
	return &resp, nil
}

// EnsureByURL returns the submission for in.URL, creating it if needed.
func (s *SubmissionService) EnsureByURL(ctx context.Context, in model.NewSubmission) (*model.Submission, bool, error) {
	normalized, err := NormalizeURL(in.URL)
	if err != nil {
		return nil, false, err
	}
	in.URL = normalized
	in.Title = strings.TrimSpace(in.Title)
	in.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)

	sub, created, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.SetSubmissionID(ctx, sub.URL, sub.ID); err != nil {
		log.Warn().Err(err).Msg("cache: set submission url failed")
	}
	return sub, created, nil
}

// Submit adds a URL to the public feed. Submitting a known URL returns the
// existing submission with created=false.
func (s *SubmissionService) Submit(ctx context.Context, req model.SubmissionRequest, submittedBy string) (*model.SubmissionResponse, bool, error) {
	sub, created, err := s.EnsureByURL(ctx, model.NewSubmission{
		URL:          req.URL,
		Title:        req.Title,
		ThumbnailURL: req.ThumbnailURL,
		SubmittedBy:  submittedBy,
	})
	if err != nil {
		return nil, false, err
	}
	resp := model.NewSubmissionResponse(sub)
	return &resp, created, nil
}

// Feed returns a page of the public feed. Out-of-range paging values are
// clamped.
func (s *SubmissionService) Feed(ctx context.Context, q model.FeedQuery) (*model.FeedResponse, error) {
	if q.Sort != model.SortTop {
		q.Sort = model.SortNew
	}
	if q.Category != "" && !repository.ValidCategories[q.Category] {
		return nil, ErrInvalidCategory
	}
	if q.Limit <= 0 {
		q.Limit = DefaultFeedLimit
	}
	q.Limit = min(q.Limit, MaxFeedLimit)
	q.Offset = max(q.Offset, 0)

	subs, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}

	resp := &model.FeedResponse{
		Submissions: make([]model.SubmissionResponse, 0, len(subs)),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	for i := range subs {
		resp.Submissions = append(resp.Submissions, model.NewSubmissionResponse(&subs[i]))
	}
	return resp, nil
}

// Ratings returns the totals for a URL as seen by the browser extension.
// The weighted counters are passed through untouched.
func (s *SubmissionService) Ratings(ctx context.Context, rawURL string) (*model.RatingsResponse, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	id, err := s.cache.GetSubmissionID(ctx, normalized)
	if err != nil {
		log.Warn().Err(err).Msg("cache: get submission url failed")
	}

	var sub *model.Submission
	if id != "" {
		sub, err = s.Lookup(ctx, id)
	} else {
		sub, err = s.store.FindByURL(ctx, normalized)
		if err == nil {
			if err := s.cache.SetSubmissionID(ctx, normalized, sub.ID); err != nil {
				log.Warn().Err(err).Msg("cache: set submission url failed")
			}
		}
	}
	if err != nil {
		return nil, err
	}

	return &model.RatingsResponse{
		SubmissionID:    sub.ID,
		URL:             sub.URL,
		TotalCraft:      sub.TotalCraft,
		TotalCrap:       sub.TotalCrap,
		WeightedCraft:   sub.WeightedCraft,
		WeightedCrap:    sub.WeightedCrap,
		CraftPercentage: sub.Totals().Percentage(),
	}, nil
}
