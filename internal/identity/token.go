package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims 会话 JWT 声明
type SessionClaims struct {
	UserID        uint     `json:"uid,omitempty"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	TenantCodes   []string `json:"tenants,omitempty"`
	MerchantCodes []string `json:"merchants,omitempty"`
	Provider      string   `json:"provider"`
	jwt.RegisteredClaims
}

// TokenIssuer 会话令牌签发与解析（HS256）
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	store  *cache.Store
	now    func() time.Time
}

// NewTokenIssuer 创建令牌签发器，store 用于会话注销
func NewTokenIssuer(cfg config.JWTConfig, store *cache.Store) *TokenIssuer {
	hours := cfg.ExpireHours
	if hours <= 0 {
		hours = 168
	}
	return &TokenIssuer{
		secret: []byte(cfg.SecretKey),
		issuer: strings.TrimSpace(cfg.Issuer),
		ttl:    time.Duration(hours) * time.Hour,
		store:  store,
		now:    time.Now,
	}
}

// TTL 会话有效期
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue 为身份签发会话
func (t *TokenIssuer) Issue(identity *Identity) (*Session, error) {
	if identity == nil {
		return nil, errors.New("identity is nil")
	}
	now := t.now()
	expiresAt := now.Add(t.ttl)
	sessionID := uuid.NewString()
	claims := SessionClaims{
		UserID:        identity.UserID,
		Email:         identity.Email,
		Name:          identity.Name,
		Role:          identity.Role,
		TenantCodes:   identity.TenantCodes,
		MerchantCodes: identity.MerchantCodes,
		Provider:      identity.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    t.issuer,
			Subject:   identity.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, err
	}

	issued := *identity
	issued.SessionID = sessionID
	issued.ExpiresAt = expiresAt
	return &Session{Token: token, ExpiresAt: expiresAt, Identity: &issued}, nil
}

// Parse 解析会话令牌；签名无效、过期或已注销时返回 nil, nil
func (t *TokenIssuer) Parse(ctx context.Context, tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, nil
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		options = append(options, jwt.WithIssuer(t.issuer))
	}
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, nil
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, nil
	}
	revoked, err := t.store.IsSessionRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}
	return claims, nil
}

// Revoke 注销会话，直到令牌自然过期
func (t *TokenIssuer) Revoke(ctx context.Context, tokenString string) error {
	claims, err := t.Parse(ctx, tokenString)
	if err != nil || claims == nil {
		return err
	}
	remaining := claims.ExpiresAt.Time.Sub(t.now())
	return t.store.RevokeSession(ctx, claims.ID, remaining)
}

func identityFromClaims(claims *SessionClaims) *Identity {
	identity := &Identity{
		UserID:        claims.UserID,
		Email:         claims.Email,
		Name:          claims.Name,
		Role:          claims.Role,
		TenantCodes:   claims.TenantCodes,
		MerchantCodes: claims.MerchantCodes,
		Provider:      claims.Provider,
		SessionID:     claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity
}
