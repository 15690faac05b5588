package model

import (
	"math"
	"strings"
	"time"
)

// Verdict is the binary classification a voter assigns to an item.
type Verdict string

const (
	VerdictCraft Verdict = "craft"
	VerdictCrap  Verdict = "crap"
)

// ParseVerdict normalizes and validates a verdict string.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToLower(strings.TrimSpace(s))) {
	case VerdictCraft:
		return VerdictCraft, true
	case VerdictCrap:
		return VerdictCrap, true
	}
	return "", false
}

// Valid reports whether v is one of the two known verdicts.
func (v Verdict) Valid() bool {
	return v == VerdictCraft || v == VerdictCrap
}

// Totals holds the craft/crap counters of a target item.
type Totals struct {
	Craft int `json:"total_craft"`
	Crap  int `json:"total_crap"`
}

// Add returns t with one vote of the given verdict added.
func (t Totals) Add(v Verdict) Totals {
	switch v {
	case VerdictCraft:
		t.Craft++
	case VerdictCrap:
		t.Crap++
	}
	return t
}

// Sub returns t with one vote of the given verdict removed, never going below zero.
func (t Totals) Sub(v Verdict) Totals {
	switch v {
	case VerdictCraft:
		if t.Craft > 0 {
			t.Craft--
		}
	case VerdictCrap:
		if t.Crap > 0 {
			t.Crap--
		}
	}
	return t
}

// Count returns the total number of votes.
func (t Totals) Count() int {
	return t.Craft + t.Crap
}

// Percentage returns the craft share as a percentage rounded to two decimals.
func (t Totals) Percentage() float64 {
	if t.Count() == 0 {
		return 0
	}
	p := float64(t.Craft) / float64(t.Count()) * 100
	return math.Round(p*100) / 100
}

// Vote represents one accepted vote on a public submission.
type Vote struct {
	ID           int64     `json:"id"`
	SubmissionID string    `json:"submissionId"`
	Verdict      Verdict   `json:"verdict"`
	UserID       string    `json:"-"`
	Fingerprint  string    `json:"-"`
	IPAddress    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BoardVote represents one vote on a board item. Unlike Vote it may be
// updated in place when the same voter changes their mind.
type BoardVote struct {
	ID          int64     `json:"id"`
	BoardItemID string    `json:"boardItemId"`
	Verdict     Verdict   `json:"verdict"`
	UserID      string    `json:"-"`
	VoterToken  string    `json:"-"`
	IPAddress   string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VoteRequest is the API request body for a public feed vote.
type VoteRequest struct {
	SubmissionID string `json:"submission_id"`
	Verdict      string `json:"verdict"`
	Fingerprint  string `json:"fingerprint"`
}

// ExtensionVoteRequest is the API request body for a token-authenticated vote.
type ExtensionVoteRequest struct {
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl,omitempty"`
	Verdict  string `json:"verdict"`
}

// BoardVoteRequest is the API request body for voting on a board item.
type BoardVoteRequest struct {
	ItemID     string `json:"itemId"`
	Verdict    string `json:"verdict"`
	VoterToken string `json:"voterToken,omitempty"`
}

// VoteResponse is the API response after a public vote.
type VoteResponse struct {
	TotalCraft      int     `json:"total_craft"`
	TotalCrap       int     `json:"total_crap"`
	CraftPercentage float64 `json:"craft_percentage"`
}

// ExtensionVoteResponse is the API response after an extension vote.
type ExtensionVoteResponse struct {
	SubmissionID    string  `json:"submission_id"`
	TotalCraft      int     `json:"total_craft"`
	TotalCrap       int     `json:"total_crap"`
	CraftPercentage float64 `json:"craft_percentage"`
	AlreadyVoted    bool    `json:"already_voted"`
}

// BoardVoteResponse is the API response after a board vote.
type BoardVoteResponse struct {
	ItemID     string  `json:"itemId"`
	Verdict    Verdict `json:"verdict"`
	Updated    bool    `json:"updated"`
	TotalCraft int     `json:"total_craft"`
	TotalCrap  int     `json:"total_crap"`
}

// NewVoteResponse builds a VoteResponse from counters.
func NewVoteResponse(t Totals) VoteResponse {
	return VoteResponse{
		TotalCraft:      t.Craft,
		TotalCrap:       t.Crap,
		CraftPercentage: t.Percentage(),
	}
}
