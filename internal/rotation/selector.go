// Package rotation 决定下一道展示给用户的题目，以及完成进度的计算口径。
// 所有函数只读取传入的快照，不做任何持久化。
package rotation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/qs3c/feedback_tag_server/internal/model"
)

const (
	PolicyGlobal  = "global"
	PolicyPerUser = "per_user"
)

var (
	// ErrNoQuestions 题库为空时调用属于状态错误
	ErrNoQuestions   = errors.New("题库为空")
	ErrUserRequired  = errors.New("缺少用户")
	ErrUnknownPolicy = errors.New("未知的轮换策略")
)

// Policy 轮换策略
type Policy interface {
	Name() string
	// SelectNext 返回下一题 ID，返回值一定出现在 questions 中
	SelectNext(userID, currentID int64, questions []*model.Question, responses []*model.Response) (int64, error)
	// Progress 返回完成百分比；per_user 口径只统计该用户
	Progress(userID int64, questions []*model.Question, responses []*model.Response) int
}

// NewPolicy 按名称创建策略，空名称使用 global
func NewPolicy(name string) (Policy, error) {
	switch name {
	case "", PolicyGlobal:
		return GlobalPolicy{}, nil
	case PolicyPerUser:
		return PerUserPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
}

// GlobalPolicy 任意用户标注过的题目即退出轮换
type GlobalPolicy struct{}

func (GlobalPolicy) Name() string { return PolicyGlobal }

func (GlobalPolicy) SelectNext(_ int64, currentID int64, questions []*model.Question, _ []*model.Response) (int64, error) {
	if len(questions) == 0 {
		return 0, ErrNoQuestions
	}

	sorted := make([]*model.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	currentUnanswered := false
	for _, q := range sorted {
		if q.IsAnswered() {
			continue
		}
		if q.ID != currentID {
			return q.ID, nil
		}
		currentUnanswered = true
	}
	if currentUnanswered {
		return currentID, nil
	}

	// 全部已回答：保持当前题，由调用方展示完成状态
	if contains(sorted, currentID) {
		return currentID, nil
	}
	return sorted[0].ID, nil
}

func (GlobalPolicy) Progress(_ int64, questions []*model.Question, responses []*model.Response) int {
	return Percent(len(distinctAnswered(questions, responses, nil)), len(questions))
}

// PerUserPolicy 优先展示该用户未作答的题目，全部答完后回到最早作答的题目
type PerUserPolicy struct{}

func (PerUserPolicy) Name() string { return PolicyPerUser }

func (PerUserPolicy) SelectNext(userID, currentID int64, questions []*model.Question, responses []*model.Response) (int64, error) {
	if len(questions) == 0 {
		return 0, ErrNoQuestions
	}
	if userID == 0 {
		return 0, ErrUserRequired
	}

	var own []*model.Response
	for _, r := range responses {
		if r.UserID == userID {
			own = append(own, r)
		}
	}

	if len(own) == 0 {
		if currentID != 0 && contains(questions, currentID) {
			return currentID, nil
		}
		return questions[0].ID, nil
	}

	seen := make(map[int64]struct{}, len(own))
	for _, r := range own {
		seen[r.QuestionID] = struct{}{}
	}
	for _, q := range questions {
		if _, ok := seen[q.ID]; !ok {
			return q.ID, nil
		}
	}

	// 全部答完：按时间最早的一条记录重新出题
	oldest := own[0]
	for _, r := range own[1:] {
		if r.CreatedAt.Before(oldest.CreatedAt) {
			oldest = r
		}
	}
	if contains(questions, oldest.QuestionID) {
		return oldest.QuestionID, nil
	}
	return questions[0].ID, nil
}

func (PerUserPolicy) Progress(userID int64, questions []*model.Question, responses []*model.Response) int {
	return Percent(len(distinctAnswered(questions, responses, &userID)), len(questions))
}

// Percent 四舍五入并限制在 [0,100]
func Percent(answered, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(float64(answered)/float64(total)*100 + 0.5)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// distinctAnswered 统计被非跳过记录覆盖的题目，userID 非空时只统计该用户
func distinctAnswered(questions []*model.Question, responses []*model.Response, userID *int64) map[int64]struct{} {
	known := make(map[int64]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	ids := make(map[int64]struct{})
	for _, r := range responses {
		if r.Skipped {
			continue
		}
		if userID != nil && r.UserID != *userID {
			continue
		}
		if _, ok := known[r.QuestionID]; ok {
			ids[r.QuestionID] = struct{}{}
		}
	}
	return ids
}

// AnsweredCount 返回进度分子，口径与 Policy.Progress 一致
func AnsweredCount(p Policy, userID int64, questions []*model.Question, responses []*model.Response) int {
	if p.Name() == PolicyPerUser {
		return len(distinctAnswered(questions, responses, &userID))
	}
	return len(distinctAnswered(questions, responses, nil))
}

func contains(questions []*model.Question, id int64) bool {
	for _, q := range questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
