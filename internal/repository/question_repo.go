package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/feedback_tag_server/internal/model"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: tx}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.db.Create(question).Error
}

// Upsert 导入题目：按 ID 覆盖题干和参考答案，不改动已回答标记
func (r *QuestionRepository) Upsert(question *model.Question) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"prompt", "answer", "updated_at"}),
	}).Create(question).Error
}

func (r *QuestionRepository) GetByID(id int64) (*model.Question, error) {
	var question model.Question
	err := r.db.Where("id = ?", id).First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// List 按 ID 升序返回全部题目
func (r *QuestionRepository) List() ([]*model.Question, error) {
	var questions []*model.Question
	err := r.db.Order("id ASC").Find(&questions).Error
	return questions, err
}

// MarkAnswered 条件更新已回答标记，重复调用幂等
func (r *QuestionRepository) MarkAnswered(id int64) error {
	result := r.db.Model(&model.Question{}).
		Where("id = ? AND (answered IS NULL OR answered = ?)", id, false).
		UpdateColumn("answered", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 未更新：可能已经是 true，也可能题目不存在
	var count int64
	if err := r.db.Model(&model.Question{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAnsweredDirect 读出整行后保存，MarkAnswered 失败时的备用路径
func (r *QuestionRepository) MarkAnsweredDirect(id int64) error {
	question, err := r.GetByID(id)
	if err != nil {
		return err
	}
	answered := true
	question.Answered = &answered
	return r.db.Save(question).Error
}

func (r *QuestionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Question{}).Count(&count).Error
	return count, err
}
