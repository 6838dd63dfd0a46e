package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
	"github.com/qs3c/feedback_tag_server/internal/pkg/pubsub"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/rotation"
)

const (
	submissionTagged   = "tagged"
	submissionSkipped  = "skipped"
	submissionRejected = "rejected"
)

// EventPublisher 事件发布，失败只记录日志
type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.Event) error
}

type SubmissionService struct {
	userRepo     *repository.UserRepository
	questionRepo *repository.QuestionRepository
	responseRepo *repository.ResponseRepository
	policy       rotation.Policy
	persistSkips bool
	publisher    EventPublisher
	metrics      *metrics.Metrics
	fallback     *fallbackRunner
	log          logrus.FieldLogger
}

func NewSubmissionService(
	userRepo *repository.UserRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	policy rotation.Policy,
	persistSkips bool,
	publisher EventPublisher,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *SubmissionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &SubmissionService{
		userRepo:     userRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		policy:       policy,
		persistSkips: persistSkips,
		publisher:    publisher,
		metrics:      m,
		fallback:     newFallbackRunner(log, m.Fallbacks),
		log:          log,
	}
}

// Submit 记录一次标注（或跳过），返回下一题与进度
func (s *SubmissionService) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error) {
	if err := validateSubmission(req); err != nil {
		s.metrics.Submissions.WithLabelValues(submissionRejected).Inc()
		return nil, err
	}

	if _, err := s.userRepo.GetByID(req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, backendError("get user", err)
	}
	if _, err := s.questionRepo.GetByID(req.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, backendError("get question", err)
	}

	questions, responses, err := loadSnapshot(s.questionRepo, s.responseRepo)
	if err != nil {
		return nil, err
	}
	before := s.policy.Progress(req.UserID, questions, responses)

	result := &dto.SubmitResponse{}
	if req.Skipped {
		if err := s.recordSkip(req, result); err != nil {
			return nil, err
		}
		s.metrics.Submissions.WithLabelValues(submissionSkipped).Inc()
	} else {
		if err := s.recordTag(req, result); err != nil {
			return nil, err
		}
		s.metrics.Submissions.WithLabelValues(submissionTagged).Inc()
	}

	user, err := s.userRepo.GetByID(req.UserID)
	if err != nil {
		return nil, backendError("get user", err)
	}
	result.UserCount = user.Count

	questions, responses, err = loadSnapshot(s.questionRepo, s.responseRepo)
	if err != nil {
		return nil, err
	}
	nextID, err := s.policy.SelectNext(req.UserID, req.QuestionID, questions, responses)
	if err != nil {
		if errors.Is(err, rotation.ErrNoQuestions) {
			return nil, ErrNoMoreQuestions
		}
		return nil, err
	}
	result.NextQuestion = toQuestionItem(findQuestion(questions, nextID))
	result.Progress = s.policy.Progress(req.UserID, questions, responses)
	result.Completed = before < 100 && result.Progress == 100

	s.publish(ctx, req, result)
	return result, nil
}

// recordTag 写入记录、累加提交数、标记题目已回答，三步在同一事务中，任一步失败全部回滚
func (s *SubmissionService) recordTag(req *dto.SubmitRequest, result *dto.SubmitResponse) error {
	resp := &model.Response{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		QuestionID: req.QuestionID,
		Sentiment:  model.Sentiment(req.Sentiment),
		Feedback:   model.Feedback(req.Feedback),
	}

	err := s.responseRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.responseRepo.WithTx(tx).Create(resp); err != nil {
			return backendError("create response", err)
		}

		err := s.fallback.run("increment_count",
			savepoint(tx, func(sp *gorm.DB) error { return s.userRepo.WithTx(sp).IncrementCount(req.UserID) }),
			func() error { return s.userRepo.WithTx(tx).IncrementCountDirect(req.UserID) },
		)
		if err != nil {
			return err
		}

		return s.fallback.run("mark_answered",
			savepoint(tx, func(sp *gorm.DB) error { return s.questionRepo.WithTx(sp).MarkAnswered(req.QuestionID) }),
			func() error { return s.questionRepo.WithTx(tx).MarkAnsweredDirect(req.QuestionID) },
		)
	})
	if err != nil {
		if errors.Is(err, ErrBackend) {
			return err
		}
		return backendError("record tag", err)
	}

	result.ResponseID = resp.ID
	result.Recorded = true
	return nil
}

// savepoint 主操作失败时只回滚到保存点，备用操作仍在原事务内执行
func savepoint(tx *gorm.DB, fn func(sp *gorm.DB) error) func() error {
	return func() error {
		return tx.Transaction(fn)
	}
}

// recordSkip 默认不落库；开启 persist_skips 时写入 N/A 记录，不计数也不标记已回答
func (s *SubmissionService) recordSkip(req *dto.SubmitRequest, result *dto.SubmitResponse) error {
	if !s.persistSkips {
		return nil
	}

	resp := &model.Response{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		QuestionID: req.QuestionID,
		Sentiment:  model.SentimentNA,
		Feedback:   model.FeedbackNA,
		Skipped:    true,
	}
	if err := s.responseRepo.Create(resp); err != nil {
		return backendError("create skip", err)
	}

	result.ResponseID = resp.ID
	result.Recorded = true
	return nil
}

func (s *SubmissionService) publish(ctx context.Context, req *dto.SubmitRequest, result *dto.SubmitResponse) {
	if s.publisher == nil {
		return
	}

	events := []*pubsub.Event{{
		Type:       pubsub.EventLeaderboardUpdated,
		UserID:     req.UserID,
		QuestionID: req.QuestionID,
		Progress:   result.Progress,
	}}
	if result.Completed {
		events = append(events, &pubsub.Event{
			Type:     pubsub.EventAllAnswered,
			UserID:   req.UserID,
			Progress: result.Progress,
		})
	}

	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.log.WithError(err).WithField("event", e.Type).Warn("publish event failed")
		}
	}
}

// validateSubmission 本地校验，不访问存储
func validateSubmission(req *dto.SubmitRequest) error {
	if req.UserID <= 0 {
		return validationError("请选择用户")
	}
	if req.QuestionID <= 0 {
		return validationError("缺少题目")
	}
	if req.Skipped {
		return nil
	}

	if req.Sentiment == "" {
		return validationError("请选择情感倾向")
	}
	if s := model.Sentiment(req.Sentiment); !s.Valid() || s == model.SentimentNA {
		return validationError("情感倾向取值无效")
	}
	if req.Feedback == "" {
		return validationError("请选择反馈类型")
	}
	if f := model.Feedback(req.Feedback); !f.Valid() || f == model.FeedbackNA {
		return validationError("反馈类型取值无效")
	}
	return nil
}
