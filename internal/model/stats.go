package model

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	TotalSubmissions int            `json:"totalSubmissions"`
	TotalVotes       int            `json:"totalVotes"`
	TotalBoards      int            `json:"totalBoards"`
	TotalBoardVotes  int            `json:"totalBoardVotes"`
	Votes24h         int            `json:"votes24h"`
	TopCategories    map[string]int `json:"topCategories"`
}
