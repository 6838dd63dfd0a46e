package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
	"github.com/qs3c/feedback_tag_server/internal/pkg/pubsub"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/rotation"
	tu "github.com/qs3c/feedback_tag_server/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type submissionTestContext struct {
	db        *gorm.DB
	svc       *SubmissionService
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func setupSubmissionService(t *testing.T, policyName string, persistSkips bool) (*submissionTestContext, func()) {
	t.Helper()

	db := tu.SetupTestDB(t)
	policy, err := rotation.NewPolicy(policyName)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	m := metrics.New(nil)
	svc := NewSubmissionService(
		repository.NewUserRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewResponseRepository(db),
		policy,
		persistSkips,
		pub,
		m,
		quietLog(),
	)

	return &submissionTestContext{db: db, svc: svc, publisher: pub, metrics: m}, func() {
		tu.CleanupTestDB(t, db)
	}
}

func tagRequest(userID, questionID int64) *dto.SubmitRequest {
	return &dto.SubmitRequest{
		UserID:     userID,
		QuestionID: questionID,
		Sentiment:  string(model.SentimentPositive),
		Feedback:   string(model.FeedbackPraise),
	}
}

func TestValidateSubmission(t *testing.T) {
	tests := []struct {
		name    string
		req     *dto.SubmitRequest
		wantErr bool
	}{
		{"valid", tagRequest(1, 1), false},
		{"no user", tagRequest(0, 1), true},
		{"no question", tagRequest(1, 0), true},
		{"no sentiment", &dto.SubmitRequest{UserID: 1, QuestionID: 1, Feedback: "Praise"}, true},
		{"no feedback", &dto.SubmitRequest{UserID: 1, QuestionID: 1, Sentiment: "Neutral"}, true},
		{"unknown sentiment", &dto.SubmitRequest{UserID: 1, QuestionID: 1, Sentiment: "Happy", Feedback: "Praise"}, true},
		{"unknown feedback", &dto.SubmitRequest{UserID: 1, QuestionID: 1, Sentiment: "Negative", Feedback: "Rant"}, true},
		{"na sentiment without skip", &dto.SubmitRequest{UserID: 1, QuestionID: 1, Sentiment: "N/A", Feedback: "Praise"}, true},
		{"skip without tags", &dto.SubmitRequest{UserID: 1, QuestionID: 1, Skipped: true}, false},
		{"skip without user", &dto.SubmitRequest{QuestionID: 1, Skipped: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSubmission(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmissionService_ValidationDoesNotTouchStore(t *testing.T) {
	// 仓储持有 nil DB，一旦访问就会 panic
	m := metrics.New(nil)
	svc := NewSubmissionService(
		repository.NewUserRepository(nil),
		repository.NewQuestionRepository(nil),
		repository.NewResponseRepository(nil),
		rotation.GlobalPolicy{},
		false,
		nil,
		m,
		quietLog(),
	)

	_, err := svc.Submit(context.Background(), &dto.SubmitRequest{UserID: 1, QuestionID: 1, Sentiment: "Positive"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Submissions.WithLabelValues(submissionRejected)))
}

func TestSubmissionService_Submit_Tag(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()

	user := tu.TestUser(t, tc.db, tu.WithCount(2))
	q1 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(1))
	q2 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(2))
	tu.TestQuestion(t, tc.db, tu.WithQuestionID(3))

	resp, err := tc.svc.Submit(context.Background(), tagRequest(user.ID, q1.ID))
	require.NoError(t, err)

	assert.True(t, resp.Recorded)
	assert.NotEmpty(t, resp.ResponseID)
	assert.Equal(t, 3, resp.UserCount)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, q2.ID, resp.NextQuestion.ID)
	assert.Equal(t, 33, resp.Progress)
	assert.False(t, resp.Completed)

	var stored model.Response
	require.NoError(t, tc.db.First(&stored, "id = ?", resp.ResponseID).Error)
	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, model.SentimentPositive, stored.Sentiment)
	assert.Equal(t, model.FeedbackPraise, stored.Feedback)
	assert.False(t, stored.Skipped)

	var question model.Question
	require.NoError(t, tc.db.First(&question, q1.ID).Error)
	assert.True(t, question.IsAnswered())

	assert.Equal(t, []string{pubsub.EventLeaderboardUpdated}, tc.publisher.types())
	assert.Equal(t, float64(1), testutil.ToFloat64(tc.metrics.Submissions.WithLabelValues(submissionTagged)))
}

func TestSubmissionService_Submit_SkipNotPersisted(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q1 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(1))
	q2 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(2))

	resp, err := tc.svc.Submit(context.Background(), &dto.SubmitRequest{
		UserID: user.ID, QuestionID: q1.ID, Skipped: true,
	})
	require.NoError(t, err)

	assert.False(t, resp.Recorded)
	assert.Empty(t, resp.ResponseID)
	assert.Equal(t, 0, resp.UserCount)
	assert.Equal(t, q2.ID, resp.NextQuestion.ID)
	assert.Equal(t, 0, resp.Progress)

	var count int64
	tc.db.Model(&model.Response{}).Count(&count)
	assert.Equal(t, int64(0), count)

	var question model.Question
	require.NoError(t, tc.db.First(&question, q1.ID).Error)
	assert.False(t, question.IsAnswered())
}

func TestSubmissionService_Submit_SkipPersisted(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, true)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q1 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(1))
	tu.TestQuestion(t, tc.db, tu.WithQuestionID(2))

	resp, err := tc.svc.Submit(context.Background(), &dto.SubmitRequest{
		UserID:     user.ID,
		QuestionID: q1.ID,
		Sentiment:  "Positive",
		Feedback:   "Praise",
		Skipped:    true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.Equal(t, 0, resp.UserCount)
	assert.Equal(t, 0, resp.Progress)

	var stored model.Response
	require.NoError(t, tc.db.First(&stored, "id = ?", resp.ResponseID).Error)
	assert.True(t, stored.Skipped)
	assert.Equal(t, model.SentimentNA, stored.Sentiment)
	assert.Equal(t, model.FeedbackNA, stored.Feedback)

	var question model.Question
	require.NoError(t, tc.db.First(&question, q1.ID).Error)
	assert.False(t, question.IsAnswered())
}

func TestSubmissionService_Submit_NotFound(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)

	_, err := tc.svc.Submit(context.Background(), tagRequest(99999, q.ID))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = tc.svc.Submit(context.Background(), tagRequest(user.ID, 99999))
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	var count int64
	tc.db.Model(&model.Response{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSubmissionService_Submit_CompletedOnce(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()
	ctx := context.Background()

	alice := tu.TestUser(t, tc.db, tu.WithName("alice"))
	bob := tu.TestUser(t, tc.db, tu.WithName("bob"))
	q1 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(1))
	q2 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(2))

	first, err := tc.svc.Submit(ctx, tagRequest(alice.ID, q1.ID))
	require.NoError(t, err)
	assert.Equal(t, 50, first.Progress)
	assert.False(t, first.Completed)

	second, err := tc.svc.Submit(ctx, tagRequest(bob.ID, q2.ID))
	require.NoError(t, err)
	assert.Equal(t, 100, second.Progress)
	assert.True(t, second.Completed)
	// 全部已回答时停留在当前题
	assert.Equal(t, q2.ID, second.NextQuestion.ID)

	third, err := tc.svc.Submit(ctx, tagRequest(alice.ID, q2.ID))
	require.NoError(t, err)
	assert.Equal(t, 100, third.Progress)
	assert.False(t, third.Completed)

	assert.Contains(t, tc.publisher.types(), pubsub.EventAllAnswered)
}

func TestSubmissionService_Submit_ConcurrentSameQuestion(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()
	ctx := context.Background()

	alice := tu.TestUser(t, tc.db)
	bob := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)
	tu.TestQuestion(t, tc.db)

	_, err := tc.svc.Submit(ctx, tagRequest(alice.ID, q.ID))
	require.NoError(t, err)
	_, err = tc.svc.Submit(ctx, tagRequest(bob.ID, q.ID))
	require.NoError(t, err)

	var count int64
	tc.db.Model(&model.Response{}).Where("question_id = ?", q.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSubmissionService_Submit_PerUser(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyPerUser, false)
	defer cleanup()
	ctx := context.Background()

	alice := tu.TestUser(t, tc.db)
	bob := tu.TestUser(t, tc.db)
	q1 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(1))
	q2 := tu.TestQuestion(t, tc.db, tu.WithQuestionID(2))

	_, err := tc.svc.Submit(ctx, tagRequest(bob.ID, q1.ID))
	require.NoError(t, err)

	// bob 答过 q1 不影响 alice 的轮换
	resp, err := tc.svc.Submit(ctx, tagRequest(alice.ID, q2.ID))
	require.NoError(t, err)
	assert.Equal(t, q1.ID, resp.NextQuestion.ID)
	assert.Equal(t, 50, resp.Progress)
	assert.False(t, resp.Completed)

	resp, err = tc.svc.Submit(ctx, tagRequest(alice.ID, q1.ID))
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Progress)
	assert.True(t, resp.Completed)
	// 全部答完后回到最早作答的题目
	assert.Equal(t, q2.ID, resp.NextQuestion.ID)
}

func TestSubmissionService_Submit_PublishFailureIgnored(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()
	tc.publisher.err = errors.New("redis down")

	user := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)

	resp, err := tc.svc.Submit(context.Background(), tagRequest(user.ID, q.ID))
	require.NoError(t, err)
	assert.True(t, resp.Recorded)
}

func TestSubmissionService_Submit_BackendError(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)

	sqlDB, err := tc.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = tc.svc.Submit(context.Background(), tagRequest(user.ID, q.ID))
	assert.ErrorIs(t, err, ErrBackend)
}

// failUsersUpdates 让 users 表的更新失败，times<=0 表示一直失败
func failUsersUpdates(t *testing.T, db *gorm.DB, name string, times int) {
	t.Helper()
	var mu sync.Mutex
	failed := 0
	err := db.Callback().Update().Before("gorm:update").Register(name, func(d *gorm.DB) {
		if d.Statement.Table != "users" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if times > 0 && failed >= times {
			return
		}
		failed++
		d.AddError(errors.New("users table unavailable"))
	})
	require.NoError(t, err)
}

func TestSubmissionService_Submit_FailedTagLeavesNoPartialState(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)

	failUsersUpdates(t, tc.db, "test:fail_users", 0)

	for i := 0; i < 2; i++ {
		_, err := tc.svc.Submit(context.Background(), tagRequest(user.ID, q.ID))
		assert.ErrorIs(t, err, ErrBackend)
	}

	var responses int64
	require.NoError(t, tc.db.Model(&model.Response{}).Count(&responses).Error)
	assert.Equal(t, int64(0), responses)

	stored, err := repository.NewQuestionRepository(tc.db).GetByID(q.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAnswered())

	assert.Equal(t, 2.0, testutil.ToFloat64(tc.metrics.Fallbacks.WithLabelValues("increment_count", "failed")))

	// 存储恢复后重新提交只产生一条记录
	require.NoError(t, tc.db.Callback().Update().Remove("test:fail_users"))

	resp, err := tc.svc.Submit(context.Background(), tagRequest(user.ID, q.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.UserCount)

	require.NoError(t, tc.db.Model(&model.Response{}).Count(&responses).Error)
	assert.Equal(t, int64(1), responses)
}

func TestSubmissionService_Submit_FallbackRecoversInTransaction(t *testing.T) {
	tc, cleanup := setupSubmissionService(t, rotation.PolicyGlobal, false)
	defer cleanup()

	user := tu.TestUser(t, tc.db)
	q := tu.TestQuestion(t, tc.db)

	// 只让原子自增失败一次，读后写回的备用路径成功
	failUsersUpdates(t, tc.db, "test:fail_users_once", 1)
	defer func() {
		_ = tc.db.Callback().Update().Remove("test:fail_users_once")
	}()

	resp, err := tc.svc.Submit(context.Background(), tagRequest(user.ID, q.ID))
	require.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.Equal(t, 1, resp.UserCount)

	assert.Equal(t, 1.0, testutil.ToFloat64(tc.metrics.Fallbacks.WithLabelValues("increment_count", "recovered")))

	stored, err := repository.NewQuestionRepository(tc.db).GetByID(q.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAnswered())
}
