package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUnknownProvider    = errors.New("unknown identity provider")
)

// Identity 已认证的调用方
type Identity struct {
	UserID        uint      `json:"user_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	TenantCodes   []string  `json:"tenant_codes"`
	MerchantCodes []string  `json:"merchant_codes"`
	Provider      string    `json:"provider"`
	SessionID     string    `json:"-"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Credentials 登录凭据
type Credentials struct {
	Email    string
	Password string
}

// Session 登录成功后签发的会话
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  *Identity `json:"identity"`
}

// Provider 可插拔身份提供方
// Resolve 对未知或过期会话返回 nil, nil。
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, credentials Credentials) (*Session, error)
	Resolve(ctx context.Context, token string) (*Identity, error)
	Logout(ctx context.Context, token string) error
}

// NormalizeEmail 邮箱统一小写去空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := strings.ToUpper(strings.TrimSpace(code))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
