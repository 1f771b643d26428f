package cache

import (
	"context"
	"fmt"
	"time"
)

const identityStateCacheTTL = 10 * time.Minute

// IdentitySnapshot 已解析身份的缓存快照
type IdentitySnapshot struct {
	UserID        uint     `json:"user_id"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Status        string   `json:"status"`
	TenantCodes   []string `json:"tenant_codes"`
	MerchantCodes []string `json:"merchant_codes"`
	UpdatedAt     int64    `json:"updated_at"`
}

func identityStateKey(email string) string {
	return fmt.Sprintf("identity:%s", email)
}

func revokedSessionKey(sessionID string) string {
	return fmt.Sprintf("session:revoked:%s", sessionID)
}

// GetIdentitySnapshot 获取身份快照
func (s *Store) GetIdentitySnapshot(ctx context.Context, email string) (*IdentitySnapshot, bool, error) {
	if email == "" {
		return nil, false, nil
	}
	var snapshot IdentitySnapshot
	hit, err := s.GetJSON(ctx, identityStateKey(email), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetIdentitySnapshot 写入身份快照
func (s *Store) SetIdentitySnapshot(ctx context.Context, snapshot *IdentitySnapshot) error {
	if snapshot == nil || snapshot.Email == "" {
		return nil
	}
	if snapshot.UpdatedAt == 0 {
		snapshot.UpdatedAt = time.Now().Unix()
	}
	return s.SetJSON(ctx, identityStateKey(snapshot.Email), snapshot, identityStateCacheTTL)
}

// DelIdentitySnapshot 删除身份快照（用户或授权变更后调用）
func (s *Store) DelIdentitySnapshot(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	return s.Del(ctx, identityStateKey(email))
}

// RevokeSession 注销会话，保留到令牌过期
func (s *Store) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	return s.SetJSON(ctx, revokedSessionKey(sessionID), true, ttl)
}

// IsSessionRevoked 判断会话是否已注销
func (s *Store) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	return s.Exists(ctx, revokedSessionKey(sessionID))
}
