package service

import (
	"context"
	"strings"

	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"
)

// MerchantService 商户管理服务
type MerchantService struct {
	repo       repository.MerchantRepository
	tenantRepo repository.TenantRepository
}

// NewMerchantService 创建商户服务
func NewMerchantService(repo repository.MerchantRepository, tenantRepo repository.TenantRepository) *MerchantService {
	return &MerchantService{repo: repo, tenantRepo: tenantRepo}
}

// MerchantInput 创建/更新商户输入
type MerchantInput struct {
	TenantID uint
	Name     string
	Code     string
	Status   string
}

// List 分页查询商户
func (s *MerchantService) List(_ context.Context, page, pageSize int, tenantID uint, status, search string, scope AccessScope) ([]models.Merchant, int64, error) {
	return s.repo.List(repository.MerchantListFilter{
		Page:     page,
		PageSize: pageSize,
		TenantID: tenantID,
		Status:   strings.ToUpper(strings.TrimSpace(status)),
		Search:   strings.TrimSpace(search),
		Scope:    scope.Filter(),
	})
}

// Create 创建商户，编码为 3 位字母数字
func (s *MerchantService) Create(_ context.Context, input MerchantInput) (*models.Merchant, error) {
	name := strings.TrimSpace(input.Name)
	code, err := NormalizeMerchantCode(input.Code)
	if name == "" || err != nil {
		return nil, ErrMerchantInvalid
	}
	status, err := normalizeOrgStatus(input.Status)
	if err != nil {
		return nil, ErrMerchantInvalid
	}
	tenant, err := s.tenantRepo.GetByID(input.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	existing, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMerchantCodeExists
	}
	merchant := &models.Merchant{TenantID: tenant.ID, Name: name, Code: code, Status: status}
	if err := s.repo.Create(merchant); err != nil {
		return nil, err
	}
	merchant.Tenant = tenant
	logger.Infow("merchant_created", "merchant_id", merchant.ID, "tenant_id", tenant.ID, "code", code)
	return merchant, nil
}

// Update 更新商户名称与状态
func (s *MerchantService) Update(_ context.Context, id uint, input MerchantInput) (*models.Merchant, error) {
	merchant, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		merchant.Name = name
	}
	if strings.TrimSpace(input.Status) != "" {
		status, err := normalizeOrgStatus(input.Status)
		if err != nil {
			return nil, ErrMerchantInvalid
		}
		merchant.Status = status
	}
	merchant.Tenant = nil
	if err := s.repo.Update(merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}
