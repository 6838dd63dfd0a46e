package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 本地校验失败，未访问存储
	ErrValidation = errors.New("参数校验失败")
	// ErrBackend 存储读写失败，不重试
	ErrBackend = errors.New("存储服务异常")

	ErrUserNotFound      = errors.New("用户不存在")
	ErrQuestionNotFound  = errors.New("题目不存在")
	ErrNoMoreQuestions   = errors.New("没有更多题目")
	ErrExportJobNotFound = errors.New("导出任务不存在")

	ErrInvalidPassword   = errors.New("访问密码错误")
	ErrGateNotConfigured = errors.New("未配置访问密码")
	ErrInvalidSession    = errors.New("会话无效或已过期")
	ErrSessionRevoked    = errors.New("会话已注销")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrBackend, op, err)
}
