package model

import "time"

// Submission is a piece of creative work submitted to the public feed.
type Submission struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         *string    `json:"title,omitempty"`
	ThumbnailURL  *string    `json:"thumbnailUrl,omitempty"`
	Category      *string    `json:"category,omitempty"`
	SubmittedBy   *string    `json:"-"`
	TotalCraft    int        `json:"total_craft"`
	TotalCrap     int        `json:"total_crap"`
	WeightedCraft *float64   `json:"weighted_craft,omitempty"`
	WeightedCrap  *float64   `json:"weighted_crap,omitempty"`
	CraftScore    float64    `json:"craft_score"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastVotedAt   *time.Time `json:"lastVotedAt,omitempty"`
}

// Totals returns the submission's running counters.
func (s *Submission) Totals() Totals {
	return Totals{Craft: s.TotalCraft, Crap: s.TotalCrap}
}

// NewSubmission holds the fields needed to create a submission.
type NewSubmission struct {
	URL          string
	Title        string
	ThumbnailURL string
	SubmittedBy  string
}

// SubmissionRequest is the API request body for submitting a URL.
type SubmissionRequest struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// CategoryRequest is the API request body for assigning a category.
type CategoryRequest struct {
	SubmissionID string `json:"submission_id"`
	Category     string `json:"category"`
}

// SubmissionResponse is the API response for a single submission.
type SubmissionResponse struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	Title           *string   `json:"title,omitempty"`
	ThumbnailURL    *string   `json:"thumbnailUrl,omitempty"`
	Category        *string   `json:"category,omitempty"`
	TotalCraft      int       `json:"total_craft"`
	TotalCrap       int       `json:"total_crap"`
	CraftPercentage float64   `json:"craft_percentage"`
	CraftScore      float64   `json:"craft_score"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RatingsResponse is the extension's view of a URL's reception. The weighted
// counters are passed through as stored.
type RatingsResponse struct {
	SubmissionID    string   `json:"submission_id"`
	URL             string   `json:"url"`
	TotalCraft      int      `json:"total_craft"`
	TotalCrap       int      `json:"total_crap"`
	WeightedCraft   *float64 `json:"weighted_craft"`
	WeightedCrap    *float64 `json:"weighted_crap"`
	CraftPercentage float64  `json:"craft_percentage"`
}

// Feed sort orders.
const (
	SortNew = "new"
	SortTop = "top"
)

// FeedQuery selects a page of the public feed.
type FeedQuery struct {
	Sort     string
	Category string
	Limit    int
	Offset   int
}

// FeedResponse is the API response for a feed page.
type FeedResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// NewSubmissionResponse builds the API representation of a submission.
func NewSubmissionResponse(s *Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:              s.ID,
		URL:             s.URL,
		Title:           s.Title,
		ThumbnailURL:    s.ThumbnailURL,
		Category:        s.Category,
		TotalCraft:      s.TotalCraft,
		TotalCrap:       s.TotalCrap,
		CraftPercentage: s.Totals().Percentage(),
		CraftScore:      s.CraftScore,
		CreatedAt:       s.CreatedAt,
	}
}
