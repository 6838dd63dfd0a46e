package model

import (
	"time"
)

// User 标注人员，ID 为稳定标识，Name 仅为可修改的显示名
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;index" json:"name"`
	Count     int       `gorm:"default:0;not null" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
