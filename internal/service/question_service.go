package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/rotation"
)

type QuestionService struct {
	questionRepo *repository.QuestionRepository
	responseRepo *repository.ResponseRepository
	policy       rotation.Policy
}

func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	policy rotation.Policy,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		policy:       policy,
	}
}

// List 题目列表，按 ID 升序
func (s *QuestionService) List() ([]*dto.QuestionItem, error) {
	questions, err := s.questionRepo.List()
	if err != nil {
		return nil, backendError("list questions", err)
	}

	items := make([]*dto.QuestionItem, len(questions))
	for i, q := range questions {
		items[i] = toQuestionItem(q)
	}
	return items, nil
}

func (s *QuestionService) Get(id int64) (*dto.QuestionItem, error) {
	q, err := s.questionRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, backendError("get question", err)
	}
	return toQuestionItem(q), nil
}

// Next 按当前轮换策略选出下一题
func (s *QuestionService) Next(userID, currentID int64) (*dto.NextQuestionResponse, error) {
	if s.policy.Name() == rotation.PolicyPerUser && userID <= 0 {
		return nil, validationError("请选择用户")
	}

	questions, responses, err := loadSnapshot(s.questionRepo, s.responseRepo)
	if err != nil {
		return nil, err
	}

	nextID, err := s.policy.SelectNext(userID, currentID, questions, responses)
	if err != nil {
		if errors.Is(err, rotation.ErrNoQuestions) {
			return nil, ErrNoMoreQuestions
		}
		return nil, err
	}

	return &dto.NextQuestionResponse{
		Question: toQuestionItem(findQuestion(questions, nextID)),
		Progress: s.policy.Progress(userID, questions, responses),
	}, nil
}

// loadSnapshot 读取轮换所需的题目与记录快照
func loadSnapshot(
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
) ([]*model.Question, []*model.Response, error) {
	questions, err := questionRepo.List()
	if err != nil {
		return nil, nil, backendError("list questions", err)
	}
	responses, err := responseRepo.List()
	if err != nil {
		return nil, nil, backendError("list responses", err)
	}
	return questions, responses, nil
}

func findQuestion(questions []*model.Question, id int64) *model.Question {
	for _, q := range questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func toQuestionItem(q *model.Question) *dto.QuestionItem {
	if q == nil {
		return nil
	}
	return &dto.QuestionItem{
		ID:       q.ID,
		Question: q.Prompt,
		Answer:   q.Answer,
		Answered: q.IsAnswered(),
	}
}
