package dto

type ListResultsRequest struct {
	Status   string `form:"status"`
	RunID    string `form:"run_id"`
	Address  string `form:"address"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListResultsResponse struct {
	Results    []ResultDTO `json:"results"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type ResultDTO struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Email      string `json:"email"`
	Code       string `json:"code"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	RecordedAt string `json:"recorded_at"`
}

type SummaryRequest struct {
	RunID string `form:"run_id"`
}

type SummaryResponse struct {
	RunID    string           `json:"run_id,omitempty"`
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}
