package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx 返回绑定到事务 tx 的仓库
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List 按 ID 升序返回全部用户（身份选择列表）
func (r *UserRepository) List() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("id ASC").Find(&users).Error
	return users, err
}

// ListByCount 排行榜：按提交数降序，同分按 ID 升序
func (r *UserRepository) ListByCount() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("count DESC").Order("id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateName(id int64, name string) error {
	user, err := r.GetByID(id)
	if err != nil {
		return err
	}
	return r.db.Model(user).Update("name", name).Error
}

// IncrementCount 原子自增提交数
func (r *UserRepository) IncrementCount(id int64) error {
	result := r.db.Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementCountDirect 读取后写回，非原子，仅作为 IncrementCount 失败时的备用路径
func (r *UserRepository) IncrementCountDirect(id int64) error {
	user, err := r.GetByID(id)
	if err != nil {
		return err
	}
	user.Count++
	return r.db.Model(user).UpdateColumn("count", user.Count).Error
}

func (r *UserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Count(&count).Error
	return count, err
}
