package dto

type UserItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type RenameUserRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type LeaderboardResponse struct {
	Entries        []*LeaderboardEntry `json:"entries"`
	Progress       int                 `json:"progress"`
	UserProgress   *int                `json:"user_progress,omitempty"`
	TotalQuestions int                 `json:"total_questions"`
}

type ProgressResponse struct {
	Policy   string `json:"policy"`
	Progress int    `json:"progress"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}
