package model

import "time"

// Board visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
)

// Board is a curated collection shared through an unguessable token.
type Board struct {
	ID                  string    `json:"id"`
	ShareToken          string    `json:"-"`
	Name                string    `json:"name"`
	OwnerID             string    `json:"-"`
	Visibility          string    `json:"visibility"`
	AllowAnonymousVotes bool      `json:"allowAnonymousVotes"`
	VotingEnabled       bool      `json:"votingEnabled"`
	CreatedAt           time.Time `json:"createdAt"`
}

// IsPrivate reports whether the board rejects shared access.
func (b *Board) IsPrivate() bool {
	return b.Visibility != VisibilityShared
}

// BoardItem is a voteable entry on a board.
type BoardItem struct {
	ID           string    `json:"id"`
	BoardID      string    `json:"boardId"`
	URL          string    `json:"url"`
	Title        *string   `json:"title,omitempty"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BoardItemResponse is a board item with its live tally.
type BoardItemResponse struct {
	BoardItem
	TotalCraft int `json:"total_craft"`
	TotalCrap  int `json:"total_crap"`
}

// BoardResponse is the API response for a shared board.
type BoardResponse struct {
	Board Board               `json:"board"`
	Items []BoardItemResponse `json:"items"`
}
