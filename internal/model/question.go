package model

import (
	"time"
)

type Question struct {
	ID     int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Prompt string `gorm:"type:text;not null" json:"question"`
	Answer string `gorm:"type:text;not null" json:"answer"`
	// Answered 为 NULL 时视为未回答
	Answered  *bool     `json:"answered"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// IsAnswered 任意用户标注过即为 true
func (q *Question) IsAnswered() bool {
	return q.Answered != nil && *q.Answered
}
