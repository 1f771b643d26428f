package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService 后台用户与授权管理服务
type UserService struct {
	repo         repository.UserRepository
	assignments  repository.AssignmentRepository
	tenantRepo   repository.TenantRepository
	merchantRepo repository.MerchantRepository
	cacheStore   *cache.Store
	policy       config.PasswordPolicyConfig
}

// NewUserService 创建用户服务
func NewUserService(
	repo repository.UserRepository,
	assignments repository.AssignmentRepository,
	tenantRepo repository.TenantRepository,
	merchantRepo repository.MerchantRepository,
	cacheStore *cache.Store,
	policy config.PasswordPolicyConfig,
) *UserService {
	return &UserService{
		repo:         repo,
		assignments:  assignments,
		tenantRepo:   tenantRepo,
		merchantRepo: merchantRepo,
		cacheStore:   cacheStore,
		policy:       policy,
	}
}

// UserInput 创建/更新用户输入
type UserInput struct {
	Email    string
	Name     string
	Role     string
	Status   string
	Password string
}

// UserAssignments 用户的租户/商户授权
type UserAssignments struct {
	Tenants   []models.TenantAssignment   `json:"tenants"`
	Merchants []models.MerchantAssignment `json:"merchants"`
}

// List 分页查询用户
func (s *UserService) List(_ context.Context, page, pageSize int, role, status, search string) ([]models.User, int64, error) {
	return s.repo.List(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Role:     strings.TrimSpace(role),
		Status:   strings.ToUpper(strings.TrimSpace(status)),
		Search:   strings.TrimSpace(search),
	})
}

// Create 创建后台用户
func (s *UserService) Create(_ context.Context, input UserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrUserInvalid
	}
	role := strings.TrimSpace(input.Role)
	if !isKnownRole(role) {
		return nil, ErrInvalidRole
	}
	status, err := normalizeOrgStatus(input.Status)
	if err != nil {
		return nil, ErrUserInvalid
	}
	if err := validatePassword(s.policy, input.Password); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		Role:         role,
		Status:       status,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	logger.Infow("user_created", "user_id", user.ID, "email", email, "role", role)
	return user, nil
}

// Update 更新用户资料、角色、状态或密码
func (s *UserService) Update(ctx context.Context, id uint, input UserInput) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}
	if role := strings.TrimSpace(input.Role); role != "" {
		if !isKnownRole(role) {
			return nil, ErrInvalidRole
		}
		user.Role = role
	}
	if strings.TrimSpace(input.Status) != "" {
		status, err := normalizeOrgStatus(input.Status)
		if err != nil {
			return nil, ErrUserInvalid
		}
		user.Status = status
	}
	if input.Password != "" {
		if err := validatePassword(s.policy, input.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.Email)
	return user, nil
}

// Assignments 获取用户授权
func (s *UserService) Assignments(_ context.Context, userID uint) (*UserAssignments, error) {
	tenants, err := s.assignments.ListTenants(userID)
	if err != nil {
		return nil, err
	}
	merchants, err := s.assignments.ListMerchants(userID)
	if err != nil {
		return nil, err
	}
	return &UserAssignments{Tenants: tenants, Merchants: merchants}, nil
}

// AssignTenant 授权租户
func (s *UserService) AssignTenant(ctx context.Context, userID, tenantID uint, operator string) error {
	user, err := s.mustUser(userID)
	if err != nil {
		return err
	}
	tenant, err := s.tenantRepo.GetByID(tenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return ErrTenantNotFound
	}
	if err := s.assignments.AssignTenant(user.ID, tenant.ID, operator); err != nil {
		return err
	}
	s.invalidate(ctx, user.Email)
	return nil
}

// RevokeTenant 取消租户授权
func (s *UserService) RevokeTenant(ctx context.Context, userID, tenantID uint) error {
	user, err := s.mustUser(userID)
	if err != nil {
		return err
	}
	if err := s.assignments.RevokeTenant(user.ID, tenantID); err != nil {
		return err
	}
	s.invalidate(ctx, user.Email)
	return nil
}

// AssignMerchant 授权商户
func (s *UserService) AssignMerchant(ctx context.Context, userID, merchantID uint, operator string) error {
	user, err := s.mustUser(userID)
	if err != nil {
		return err
	}
	merchant, err := s.merchantRepo.GetByID(merchantID)
	if err != nil {
		return err
	}
	if merchant == nil {
		return ErrMerchantNotFound
	}
	if err := s.assignments.AssignMerchant(user.ID, merchant.ID, operator); err != nil {
		return err
	}
	s.invalidate(ctx, user.Email)
	return nil
}

// RevokeMerchant 取消商户授权
func (s *UserService) RevokeMerchant(ctx context.Context, userID, merchantID uint) error {
	user, err := s.mustUser(userID)
	if err != nil {
		return err
	}
	if err := s.assignments.RevokeMerchant(user.ID, merchantID); err != nil {
		return err
	}
	s.invalidate(ctx, user.Email)
	return nil
}

func (s *UserService) mustUser(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// invalidate 清理身份快照，下次解析会话时重新加载授权
func (s *UserService) invalidate(ctx context.Context, email string) {
	if err := s.cacheStore.DelIdentitySnapshot(ctx, email); err != nil {
		logger.Warnw("identity_snapshot_invalidate_failed", "email", email, "error", err)
	}
}

func isKnownRole(role string) bool {
	switch role {
	case constants.RoleSuperAdmin, constants.RoleTenantMarketingAdmin, constants.RoleMerchantAdmin:
		return true
	default:
		return false
	}
}
