package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/repository"
)

// File 种子数据文件
//
//	users:
//	  - id: 1
//	    name: Alice
//	questions:
//	  - id: 1
//	    question: "..."
//	    answer: "..."
type File struct {
	Users     []User     `yaml:"users"`
	Questions []Question `yaml:"questions"`
}

type User struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type Question struct {
	ID       int64  `yaml:"id"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Result 导入统计
type Result struct {
	UsersCreated      int
	UsersSkipped      int
	QuestionsUpserted int
}

// Load 读取并校验种子文件
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := make(map[int64]bool, len(f.Questions))
	for i, q := range f.Questions {
		if q.ID <= 0 {
			return fmt.Errorf("questions[%d]: id 必须为正整数", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("questions[%d]: 重复的 id %d", i, q.ID)
		}
		seen[q.ID] = true
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("questions[%d]: 题干不能为空", i)
		}
	}
	seenUsers := make(map[int64]bool, len(f.Users))
	for i, u := range f.Users {
		// 用户以 id 为稳定标识，缺省 id 会在重复导入时产生重复用户
		if u.ID <= 0 {
			return fmt.Errorf("users[%d]: id 必须为正整数", i)
		}
		if seenUsers[u.ID] {
			return fmt.Errorf("users[%d]: 重复的 id %d", i, u.ID)
		}
		seenUsers[u.ID] = true
		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("users[%d]: 名称不能为空", i)
		}
	}
	return nil
}

// Apply 写入数据库。题目按 ID 覆盖；已存在的用户保持不变
func Apply(userRepo *repository.UserRepository, questionRepo *repository.QuestionRepository, f *File) (*Result, error) {
	result := &Result{}

	for _, q := range f.Questions {
		question := &model.Question{
			ID:     q.ID,
			Prompt: q.Question,
			Answer: q.Answer,
		}
		if err := questionRepo.Upsert(question); err != nil {
			return result, fmt.Errorf("failed to upsert question %d: %w", q.ID, err)
		}
		result.QuestionsUpserted++
	}

	for _, u := range f.Users {
		_, err := userRepo.GetByID(u.ID)
		if err == nil {
			result.UsersSkipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return result, fmt.Errorf("failed to get user %d: %w", u.ID, err)
		}

		user := &model.User{ID: u.ID, Name: strings.TrimSpace(u.Name)}
		if err := userRepo.Create(user); err != nil {
			return result, fmt.Errorf("failed to create user %q: %w", u.Name, err)
		}
		result.UsersCreated++
	}

	return result, nil
}
