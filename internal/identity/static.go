package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"

	"golang.org/x/crypto/bcrypt"
)

type staticEntry struct {
	identity     Identity
	passwordHash []byte
}

// StaticProvider 基于配置凭据列表的身份提供方
type StaticProvider struct {
	issuer  *TokenIssuer
	entries map[string]staticEntry
}

// NewStaticProvider 创建静态身份提供方，密码在构造时计算 bcrypt 哈希
func NewStaticProvider(users []config.StaticUserConfig, issuer *TokenIssuer) (*StaticProvider, error) {
	entries := make(map[string]staticEntry, len(users))
	for _, user := range users {
		email := NormalizeEmail(user.Email)
		if email == "" || user.Password == "" {
			return nil, fmt.Errorf("static user requires email and password")
		}
		role := strings.TrimSpace(user.Role)
		if !isKnownRole(role) {
			return nil, fmt.Errorf("static user %s has unknown role %q", email, user.Role)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		entries[email] = staticEntry{
			identity: Identity{
				Email:         email,
				Name:          strings.TrimSpace(user.Name),
				Role:          role,
				TenantCodes:   normalizeCodes(user.TenantCodes),
				MerchantCodes: normalizeCodes(user.MerchantCodes),
				Provider:      constants.IdentityProviderStatic,
			},
			passwordHash: hash,
		}
	}
	return &StaticProvider{issuer: issuer, entries: entries}, nil
}

// Name 提供方名称
func (p *StaticProvider) Name() string {
	return constants.IdentityProviderStatic
}

// Authenticate 校验凭据并签发会话
func (p *StaticProvider) Authenticate(_ context.Context, credentials Credentials) (*Session, error) {
	entry, ok := p.entries[NormalizeEmail(credentials.Email)]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(entry.passwordHash, []byte(credentials.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	identity := entry.identity
	return p.issuer.Issue(&identity)
}

// Resolve 解析会话；账号已从列表移除时视为无效
func (p *StaticProvider) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := p.issuer.Parse(ctx, token)
	if err != nil || claims == nil {
		return nil, err
	}
	if claims.Provider != constants.IdentityProviderStatic {
		return nil, nil
	}
	entry, ok := p.entries[NormalizeEmail(claims.Email)]
	if !ok {
		return nil, nil
	}
	identity := entry.identity
	identity.SessionID = claims.ID
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return &identity, nil
}

// Logout 注销会话
func (p *StaticProvider) Logout(ctx context.Context, token string) error {
	return p.issuer.Revoke(ctx, token)
}

func isKnownRole(role string) bool {
	switch role {
	case constants.RoleSuperAdmin, constants.RoleTenantMarketingAdmin, constants.RoleMerchantAdmin:
		return true
	default:
		return false
	}
}
