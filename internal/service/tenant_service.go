package service

import (
	"context"
	"strings"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"
)

// TenantService 租户管理服务
type TenantService struct {
	repo repository.TenantRepository
}

// NewTenantService 创建租户服务
func NewTenantService(repo repository.TenantRepository) *TenantService {
	return &TenantService{repo: repo}
}

// TenantInput 创建/更新租户输入
type TenantInput struct {
	Name   string
	Code   string
	Status string
}

// List 分页查询租户
func (s *TenantService) List(_ context.Context, page, pageSize int, status, search string, scope AccessScope) ([]models.Tenant, int64, error) {
	return s.repo.List(repository.TenantListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.ToUpper(strings.TrimSpace(status)),
		Search:   strings.TrimSpace(search),
		Scope:    scope.Filter(),
	})
}

// Create 创建租户
func (s *TenantService) Create(_ context.Context, input TenantInput) (*models.Tenant, error) {
	name := strings.TrimSpace(input.Name)
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if name == "" || code == "" || !isCodeAlphanumeric(code) {
		return nil, ErrTenantInvalid
	}
	status, err := normalizeOrgStatus(input.Status)
	if err != nil {
		return nil, ErrTenantInvalid
	}
	existing, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTenantCodeExists
	}
	tenant := &models.Tenant{Name: name, Code: code, Status: status}
	if err := s.repo.Create(tenant); err != nil {
		return nil, err
	}
	logger.Infow("tenant_created", "tenant_id", tenant.ID, "code", code)
	return tenant, nil
}

// Update 更新租户名称与状态，编码不可修改
func (s *TenantService) Update(_ context.Context, id uint, input TenantInput) (*models.Tenant, error) {
	tenant, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		tenant.Name = name
	}
	if strings.TrimSpace(input.Status) != "" {
		status, err := normalizeOrgStatus(input.Status)
		if err != nil {
			return nil, ErrTenantInvalid
		}
		tenant.Status = status
	}
	if err := s.repo.Update(tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func normalizeOrgStatus(status string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "", constants.StatusActive:
		return constants.StatusActive, nil
	case constants.StatusInactive:
		return constants.StatusInactive, nil
	default:
		return "", ErrFailedPrecondition
	}
}
