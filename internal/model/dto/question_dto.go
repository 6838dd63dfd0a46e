package dto

type QuestionItem struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Answered bool   `json:"answered"`
}

// NextQuestionResponse 下一题及当前进度
type NextQuestionResponse struct {
	Question *QuestionItem `json:"question"`
	Progress int           `json:"progress"`
}
