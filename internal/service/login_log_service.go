package service

import (
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"
)

// LoginLogService 后台登录日志服务
type LoginLogService struct {
	repo repository.LoginLogRepository
}

// NewLoginLogService 创建登录日志服务
func NewLoginLogService(repo repository.LoginLogRepository) *LoginLogService {
	return &LoginLogService{repo: repo}
}

// RecordLoginInput 登录日志记录输入
type RecordLoginInput struct {
	Email      string
	Role       string
	Provider   string
	Status     string
	FailReason string
	ClientIP   string
	UserAgent  string
	RequestID  string
}

// Record 记录登录行为
func (s *LoginLogService) Record(input RecordLoginInput) error {
	if s == nil || s.repo == nil {
		return nil
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != constants.LoginLogStatusSuccess {
		status = constants.LoginLogStatusFailed
	}

	failReason := strings.ToLower(strings.TrimSpace(input.FailReason))
	if status == constants.LoginLogStatusSuccess {
		failReason = ""
	} else if failReason == "" {
		failReason = constants.LoginLogFailReasonInternalError
	}

	return s.repo.Create(&models.LoginLog{
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Role:       strings.TrimSpace(input.Role),
		Provider:   strings.TrimSpace(input.Provider),
		Status:     status,
		FailReason: failReason,
		ClientIP:   strings.TrimSpace(input.ClientIP),
		UserAgent:  strings.TrimSpace(input.UserAgent),
		RequestID:  strings.TrimSpace(input.RequestID),
		CreatedAt:  time.Now(),
	})
}

// List 管理端查询登录日志
func (s *LoginLogService) List(filter repository.LoginLogListFilter) ([]models.LoginLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.LoginLog{}, 0, nil
	}
	return s.repo.List(filter)
}
