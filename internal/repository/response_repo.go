package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
)

// ErrDuplicateResponse 记录 ID 已存在
var ErrDuplicateResponse = errors.New("duplicate response id")

type ResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) WithTx(tx *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: tx}
}

// Transaction fn 返回错误时整体回滚
func (r *ResponseRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 追加一条记录，ID 重复时返回 ErrDuplicateResponse
func (r *ResponseRepository) Create(response *model.Response) error {
	var count int64
	if err := r.db.Model(&model.Response{}).Where("id = ?", response.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateResponse
	}

	err := r.db.Create(response).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateResponse
	}
	return err
}

func (r *ResponseRepository) GetByID(id string) (*model.Response, error) {
	var response model.Response
	err := r.db.Where("id = ?", id).First(&response).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// List 按创建时间升序返回全部记录
func (r *ResponseRepository) List() ([]*model.Response, error) {
	var responses []*model.Response
	err := r.db.Order("created_at ASC").Order("id ASC").Find(&responses).Error
	return responses, err
}

func (r *ResponseRepository) ListByUser(userID int64) ([]*model.Response, error) {
	var responses []*model.Response
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&responses).Error
	return responses, err
}

// ListWithUsers 导出用，附带用户显示名
func (r *ResponseRepository) ListWithUsers() ([]*model.Response, error) {
	var responses []*model.Response
	err := r.db.Preload("User").Order("created_at ASC").Order("id ASC").Find(&responses).Error
	return responses, err
}

func (r *ResponseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Response{}).Count(&count).Error
	return count, err
}
