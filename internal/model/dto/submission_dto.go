package dto

// SubmitRequest 提交标注；Skipped 为 true 时可不填情感与反馈类型
type SubmitRequest struct {
	UserID     int64  `json:"user_id"`
	QuestionID int64  `json:"question_id"`
	Sentiment  string `json:"sentiment"`
	Feedback   string `json:"feedback"`
	Skipped    bool   `json:"skipped"`
}

type SubmitResponse struct {
	ResponseID   string        `json:"response_id,omitempty"`
	Recorded     bool          `json:"recorded"`
	UserCount    int           `json:"user_count"`
	NextQuestion *QuestionItem `json:"next_question"`
	Progress     int           `json:"progress"`
	Completed    bool          `json:"completed"`
}
