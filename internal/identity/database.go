package identity

import (
	"context"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// DatabaseProvider 基于 users 表与授权关系的身份提供方
type DatabaseProvider struct {
	issuer      *TokenIssuer
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	store       *cache.Store
}

// NewDatabaseProvider 创建数据库身份提供方
func NewDatabaseProvider(issuer *TokenIssuer, users repository.UserRepository, assignments repository.AssignmentRepository, store *cache.Store) *DatabaseProvider {
	return &DatabaseProvider{
		issuer:      issuer,
		users:       users,
		assignments: assignments,
		store:       store,
	}
}

// Name 提供方名称
func (p *DatabaseProvider) Name() string {
	return constants.IdentityProviderDatabase
}

// Authenticate 校验用户密码并签发会话
func (p *DatabaseProvider) Authenticate(ctx context.Context, credentials Credentials) (*Session, error) {
	user, err := p.users.GetByEmail(NormalizeEmail(credentials.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credentials.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != constants.StatusActive {
		return nil, ErrUserDisabled
	}

	snapshot, err := p.buildSnapshot(user)
	if err != nil {
		return nil, err
	}
	if err := p.users.TouchLastLogin(user.ID); err != nil {
		logger.Warnw("identity_touch_last_login_failed", "user_id", user.ID, "error", err)
	}
	if err := p.store.SetIdentitySnapshot(ctx, snapshot); err != nil {
		logger.Warnw("identity_snapshot_cache_failed", "email", snapshot.Email, "error", err)
	}
	return p.issuer.Issue(identityFromSnapshot(snapshot))
}

// Resolve 解析会话并以最新的用户状态与授权范围为准
func (p *DatabaseProvider) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := p.issuer.Parse(ctx, token)
	if err != nil || claims == nil {
		return nil, err
	}
	if claims.Provider != constants.IdentityProviderDatabase {
		return nil, nil
	}

	snapshot, hit, err := p.store.GetIdentitySnapshot(ctx, claims.Email)
	if err != nil {
		logger.Warnw("identity_snapshot_read_failed", "email", claims.Email, "error", err)
		hit = false
	}
	if !hit {
		user, err := p.users.GetByEmail(claims.Email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, nil
		}
		snapshot, err = p.buildSnapshot(user)
		if err != nil {
			return nil, err
		}
		if err := p.store.SetIdentitySnapshot(ctx, snapshot); err != nil {
			logger.Warnw("identity_snapshot_cache_failed", "email", snapshot.Email, "error", err)
		}
	}
	if snapshot.Status != constants.StatusActive {
		return nil, nil
	}

	resolved := identityFromClaims(claims)
	overlay := identityFromSnapshot(snapshot)
	resolved.UserID = overlay.UserID
	resolved.Name = overlay.Name
	resolved.Role = overlay.Role
	resolved.TenantCodes = overlay.TenantCodes
	resolved.MerchantCodes = overlay.MerchantCodes
	return resolved, nil
}

// Logout 注销会话
func (p *DatabaseProvider) Logout(ctx context.Context, token string) error {
	return p.issuer.Revoke(ctx, token)
}

// Invalidate 用户或授权变更后清理身份缓存
func (p *DatabaseProvider) Invalidate(ctx context.Context, email string) error {
	return p.store.DelIdentitySnapshot(ctx, NormalizeEmail(email))
}

func (p *DatabaseProvider) buildSnapshot(user *models.User) (*cache.IdentitySnapshot, error) {
	tenants, err := p.assignments.ListTenants(user.ID)
	if err != nil {
		return nil, err
	}
	merchants, err := p.assignments.ListMerchants(user.ID)
	if err != nil {
		return nil, err
	}
	snapshot := &cache.IdentitySnapshot{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		Status:        user.Status,
		TenantCodes:   make([]string, 0, len(tenants)),
		MerchantCodes: make([]string, 0, len(merchants)),
	}
	for _, row := range tenants {
		if row.Tenant != nil {
			snapshot.TenantCodes = append(snapshot.TenantCodes, row.Tenant.Code)
		}
	}
	for _, row := range merchants {
		if row.Merchant != nil {
			snapshot.MerchantCodes = append(snapshot.MerchantCodes, row.Merchant.Code)
		}
	}
	return snapshot, nil
}

func identityFromSnapshot(snapshot *cache.IdentitySnapshot) *Identity {
	return &Identity{
		UserID:        snapshot.UserID,
		Email:         snapshot.Email,
		Name:          snapshot.Name,
		Role:          snapshot.Role,
		TenantCodes:   normalizeCodes(snapshot.TenantCodes),
		MerchantCodes: normalizeCodes(snapshot.MerchantCodes),
		Provider:      constants.IdentityProviderDatabase,
	}
}
