package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/rotation"
)

type LeaderboardService struct {
	userRepo     *repository.UserRepository
	questionRepo *repository.QuestionRepository
	responseRepo *repository.ResponseRepository
	policy       rotation.Policy
}

func NewLeaderboardService(
	userRepo *repository.UserRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	policy rotation.Policy,
) *LeaderboardService {
	return &LeaderboardService{
		userRepo:     userRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		policy:       policy,
	}
}

// ListUsers 供身份选择的用户列表
func (s *LeaderboardService) ListUsers() ([]*dto.UserItem, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, backendError("list users", err)
	}

	items := make([]*dto.UserItem, len(users))
	for i, u := range users {
		items[i] = &dto.UserItem{ID: u.ID, Name: u.Name, Count: u.Count}
	}
	return items, nil
}

// RenameUser 修改显示名，记录通过 ID 关联不受影响
func (s *LeaderboardService) RenameUser(id int64, name string) (*dto.UserItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("显示名不能为空")
	}

	if err := s.userRepo.UpdateName(id, name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, backendError("rename user", err)
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, backendError("get user", err)
	}
	return &dto.UserItem{ID: user.ID, Name: user.Name, Count: user.Count}, nil
}

// Leaderboard 按提交数降序排名，同数按 ID；userID > 0 时附带该用户进度
func (s *LeaderboardService) Leaderboard(userID int64) (*dto.LeaderboardResponse, error) {
	users, err := s.userRepo.ListByCount()
	if err != nil {
		return nil, backendError("list users", err)
	}

	questions, responses, err := loadSnapshot(s.questionRepo, s.responseRepo)
	if err != nil {
		return nil, err
	}

	entries := make([]*dto.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = &dto.LeaderboardEntry{
			Rank:  i + 1,
			ID:    u.ID,
			Name:  u.Name,
			Count: u.Count,
		}
	}

	resp := &dto.LeaderboardResponse{
		Entries:        entries,
		Progress:       rotation.GlobalPolicy{}.Progress(0, questions, responses),
		TotalQuestions: len(questions),
	}
	if userID > 0 {
		p := rotation.PerUserPolicy{}.Progress(userID, questions, responses)
		resp.UserProgress = &p
	}
	return resp, nil
}

// Progress 当前策略口径下的完成进度
func (s *LeaderboardService) Progress(userID int64) (*dto.ProgressResponse, error) {
	if s.policy.Name() == rotation.PolicyPerUser && userID <= 0 {
		return nil, validationError("请选择用户")
	}

	questions, responses, err := loadSnapshot(s.questionRepo, s.responseRepo)
	if err != nil {
		return nil, err
	}

	return &dto.ProgressResponse{
		Policy:   s.policy.Name(),
		Progress: s.policy.Progress(userID, questions, responses),
		Answered: rotation.AnsweredCount(s.policy, userID, questions, responses),
		Total:    len(questions),
	}, nil
}
