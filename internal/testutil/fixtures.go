package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
)

var questionSeq int64 = 1000

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Name: fmt.Sprintf("tester_%d", time.Now().UnixNano()%10000),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithName 设置显示名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithCount 设置已提交数
func WithCount(count int) func(*model.User) {
	return func(u *model.User) {
		u.Count = count
	}
}

// TestQuestion 创建测试题目，未指定 ID 时自动分配
func TestQuestion(t *testing.T, db *gorm.DB, opts ...func(*model.Question)) *model.Question {
	t.Helper()

	question := &model.Question{
		ID:     atomic.AddInt64(&questionSeq, 1),
		Prompt: "How satisfied are you with the application?",
		Answer: "The interface is clean and intuitive.",
	}

	for _, opt := range opts {
		opt(question)
	}

	if err := db.Create(question).Error; err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	return question
}

// WithQuestionID 指定题目 ID
func WithQuestionID(id int64) func(*model.Question) {
	return func(q *model.Question) {
		q.ID = id
	}
}

// WithAnswered 设置已回答标记
func WithAnswered(answered bool) func(*model.Question) {
	return func(q *model.Question) {
		q.Answered = &answered
	}
}

// TestResponse 创建测试标注记录
func TestResponse(t *testing.T, db *gorm.DB, userID, questionID int64, opts ...func(*model.Response)) *model.Response {
	t.Helper()

	response := &model.Response{
		ID:         uuid.NewString(),
		UserID:     userID,
		QuestionID: questionID,
		Sentiment:  model.SentimentPositive,
		Feedback:   model.FeedbackPraise,
	}

	for _, opt := range opts {
		opt(response)
	}

	if err := db.Create(response).Error; err != nil {
		t.Fatalf("Failed to create test response: %v", err)
	}

	return response
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.Response) {
	return func(r *model.Response) {
		r.CreatedAt = at
	}
}

// WithSkipped 设置为跳过
func WithSkipped() func(*model.Response) {
	return func(r *model.Response) {
		r.Skipped = true
		r.Sentiment = model.SentimentNA
		r.Feedback = model.FeedbackNA
	}
}

// TestExportJob 创建测试导出任务
func TestExportJob(t *testing.T, db *gorm.DB, status string) *model.ExportJob {
	t.Helper()

	job := &model.ExportJob{
		Status: status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test export job: %v", err)
	}

	return job
}
