package model

import (
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
	SentimentNA       Sentiment = "N/A"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentNA:
		return true
	}
	return false
}

type Feedback string

const (
	FeedbackPraise    Feedback = "Praise"
	FeedbackFeedback  Feedback = "Feedback"
	FeedbackCriticism Feedback = "Criticism"
	FeedbackNA        Feedback = "N/A"
)

func (f Feedback) Valid() bool {
	switch f {
	case FeedbackPraise, FeedbackFeedback, FeedbackCriticism, FeedbackNA:
		return true
	}
	return false
}

// Response 标注记录，只追加不修改
type Response struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	QuestionID int64     `gorm:"not null;index" json:"question_id"`
	Sentiment  Sentiment `gorm:"size:20;not null" json:"sentiment"`
	Feedback   Feedback  `gorm:"size:20;not null" json:"feedback"`
	Skipped    bool      `gorm:"default:false;not null" json:"skipped"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Response) TableName() string {
	return "responses"
}
