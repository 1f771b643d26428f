package service

import (
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/repository"
)

// AccessScope 调用方的数据可见范围
type AccessScope struct {
	Role         string
	Email        string
	Unrestricted bool
	TenantIDs    []uint
	MerchantIDs  []uint
}

// UnrestrictedScope 内部任务使用的全量范围
func UnrestrictedScope() AccessScope {
	return AccessScope{Role: constants.RoleSuperAdmin, Unrestricted: true}
}

// Filter 转换为仓储层过滤条件
func (s AccessScope) Filter() repository.ScopeFilter {
	if s.Unrestricted {
		return repository.ScopeFilter{}
	}
	return repository.ScopeFilter{
		Restricted:  true,
		TenantIDs:   s.TenantIDs,
		MerchantIDs: s.MerchantIDs,
	}
}

// AllowsMerchant 判断商户是否在可见范围内
func (s AccessScope) AllowsMerchant(merchantID uint) bool {
	return s.Unrestricted || containsUint(s.MerchantIDs, merchantID)
}

// AllowsTenant 判断租户是否在可见范围内
func (s AccessScope) AllowsTenant(tenantID uint) bool {
	return s.Unrestricted || containsUint(s.TenantIDs, tenantID)
}

// ScopeResolver 将身份中的租户/商户编码解析为 ID 范围
type ScopeResolver struct {
	tenantRepo   repository.TenantRepository
	merchantRepo repository.MerchantRepository
}

// NewScopeResolver 创建范围解析器
func NewScopeResolver(tenantRepo repository.TenantRepository, merchantRepo repository.MerchantRepository) *ScopeResolver {
	return &ScopeResolver{tenantRepo: tenantRepo, merchantRepo: merchantRepo}
}

// Resolve 解析身份的访问范围
// 租户营销管理员可见其租户下全部商户；商户管理员仅可见被授权的商户。
func (r *ScopeResolver) Resolve(id *identity.Identity) (AccessScope, error) {
	if id == nil {
		return AccessScope{}, ErrForbidden
	}
	scope := AccessScope{Role: id.Role, Email: id.Email}
	switch id.Role {
	case constants.RoleSuperAdmin:
		scope.Unrestricted = true
		return scope, nil
	case constants.RoleTenantMarketingAdmin:
		tenantIDs, err := r.tenantRepo.IDsByCodes(id.TenantCodes)
		if err != nil {
			return AccessScope{}, err
		}
		merchantIDs, err := r.merchantRepo.IDsByTenantIDs(tenantIDs)
		if err != nil {
			return AccessScope{}, err
		}
		scope.TenantIDs = tenantIDs
		scope.MerchantIDs = merchantIDs
		return scope, nil
	case constants.RoleMerchantAdmin:
		merchantIDs, err := r.merchantRepo.IDsByCodes(id.MerchantCodes)
		if err != nil {
			return AccessScope{}, err
		}
		scope.MerchantIDs = merchantIDs
		return scope, nil
	default:
		return AccessScope{}, ErrInvalidRole
	}
}

func containsUint(values []uint, target uint) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
