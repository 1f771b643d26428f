package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"
)

const (
	defaultClaimSessionTTL         = 15 * time.Minute
	defaultClaimSessionMemoryLimit = 4096
)

// ClaimSessionStore 核销工作流状态存储
type ClaimSessionStore interface {
	Load(ctx context.Context, key string) (*ClaimWorkflowState, bool, error)
	Save(ctx context.Context, key string, state ClaimWorkflowState, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisClaimSessionStore 基于 cache.Store 的状态存储
type RedisClaimSessionStore struct {
	store *cache.Store
}

// NewRedisClaimSessionStore 创建 Redis 状态存储
func NewRedisClaimSessionStore(store *cache.Store) *RedisClaimSessionStore {
	return &RedisClaimSessionStore{store: store}
}

func claimSessionKey(key string) string {
	return fmt.Sprintf("claim:session:%s", key)
}

// Load 读取状态
func (s *RedisClaimSessionStore) Load(ctx context.Context, key string) (*ClaimWorkflowState, bool, error) {
	var state ClaimWorkflowState
	hit, err := s.store.GetJSON(ctx, claimSessionKey(key), &state)
	if err != nil || !hit {
		return nil, false, err
	}
	return &state, true, nil
}

// Save 写入状态
func (s *RedisClaimSessionStore) Save(ctx context.Context, key string, state ClaimWorkflowState, ttl time.Duration) error {
	return s.store.SetJSON(ctx, claimSessionKey(key), state, ttl)
}

// Delete 删除状态
func (s *RedisClaimSessionStore) Delete(ctx context.Context, key string) error {
	return s.store.Del(ctx, claimSessionKey(key))
}

type memoryClaimEntry struct {
	state     ClaimWorkflowState
	expiresAt time.Time
}

// MemoryClaimSessionStore Redis 未启用时的进程内状态存储
type MemoryClaimSessionStore struct {
	mu    sync.Mutex
	items map[string]memoryClaimEntry
	limit int
	now   func() time.Time
}

// NewMemoryClaimSessionStore 创建进程内状态存储，超过上限时淘汰最早过期的条目
func NewMemoryClaimSessionStore(limit int) *MemoryClaimSessionStore {
	if limit <= 0 {
		limit = defaultClaimSessionMemoryLimit
	}
	return &MemoryClaimSessionStore{
		items: make(map[string]memoryClaimEntry),
		limit: limit,
		now:   time.Now,
	}
}

// Load 读取状态
func (s *MemoryClaimSessionStore) Load(_ context.Context, key string) (*ClaimWorkflowState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.items, key)
		return nil, false, nil
	}
	state := entry.state
	return &state, true, nil
}

// Save 写入状态
func (s *MemoryClaimSessionStore) Save(_ context.Context, key string, state ClaimWorkflowState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if _, exists := s.items[key]; !exists && len(s.items) >= s.limit {
		s.evictLocked(now)
	}
	s.items[key] = memoryClaimEntry{state: state, expiresAt: now.Add(ttl)}
	return nil
}

// Delete 删除状态
func (s *MemoryClaimSessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len 当前条目数
func (s *MemoryClaimSessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryClaimSessionStore) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, entry := range s.items {
		if !entry.expiresAt.After(now) {
			delete(s.items, key)
			continue
		}
		if oldestKey == "" || entry.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.expiresAt
		}
	}
	if len(s.items) >= s.limit && oldestKey != "" {
		delete(s.items, oldestKey)
	}
}

// NewClaimSessionStore 按缓存是否启用选择状态存储
func NewClaimSessionStore(store *cache.Store, memoryLimit int) ClaimSessionStore {
	if store.Enabled() {
		return NewRedisClaimSessionStore(store)
	}
	return NewMemoryClaimSessionStore(memoryLimit)
}

// ClaimSessionService 每个操作员会话保存一份核销工作流状态
type ClaimSessionService struct {
	claims *ClaimService
	store  ClaimSessionStore
	ttl    time.Duration
}

// NewClaimSessionService 创建核销会话服务
func NewClaimSessionService(claims *ClaimService, store ClaimSessionStore, ttl time.Duration) *ClaimSessionService {
	if ttl <= 0 {
		ttl = defaultClaimSessionTTL
	}
	return &ClaimSessionService{claims: claims, store: store, ttl: ttl}
}

// Get 获取当前状态，不存在时返回输入态
func (s *ClaimSessionService) Get(ctx context.Context, sessionKey string) (ClaimWorkflowState, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return ClaimWorkflowState{}, ErrForbidden
	}
	state, hit, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return ClaimWorkflowState{}, err
	}
	if !hit || state == nil {
		return NewClaimWorkflowState(), nil
	}
	return *state, nil
}

// Verify 校验核销码
func (s *ClaimSessionService) Verify(ctx context.Context, sessionKey, code string, actor ClaimActor) (ClaimWorkflowState, error) {
	state, err := s.Get(ctx, sessionKey)
	if err != nil {
		return state, err
	}
	next, err := NewClaimWorkflow(s.claims, actor).Verify(ctx, state, code)
	if err != nil {
		return state, err
	}
	return next, s.save(ctx, sessionKey, next)
}

// Commit 确认核销
func (s *ClaimSessionService) Commit(ctx context.Context, sessionKey string, actor ClaimActor) (ClaimWorkflowState, error) {
	state, err := s.Get(ctx, sessionKey)
	if err != nil {
		return state, err
	}
	next, err := NewClaimWorkflow(s.claims, actor).Commit(ctx, state)
	if err != nil {
		return state, err
	}
	if next.Phase == constants.ClaimPhaseError && !s.stillVerified(ctx, sessionKey) {
		// 同会话并发提交时失败方不覆盖已写入的结果
		logger.Infow("claim_session_commit_state_kept", "kind", next.ErrorKind)
		return next, nil
	}
	// 核销已落库，状态保存失败不回滚
	if err := s.save(ctx, sessionKey, next); err != nil {
		logger.Errorw("claim_session_commit_state_lost", "phase", next.Phase, "code", next.Code, "error", err)
	}
	return next, nil
}

func (s *ClaimSessionService) stillVerified(ctx context.Context, sessionKey string) bool {
	current, hit, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return true
	}
	if !hit || current == nil {
		return false
	}
	return current.Phase == constants.ClaimPhaseVerified
}

// Reset 回到输入态，总是成功
func (s *ClaimSessionService) Reset(ctx context.Context, sessionKey string, actor ClaimActor) ClaimWorkflowState {
	state := NewClaimWorkflow(s.claims, actor).Reset()
	if err := s.store.Delete(ctx, strings.TrimSpace(sessionKey)); err != nil {
		logger.Warnw("claim_session_reset_failed", "error", err)
	}
	return state
}

func (s *ClaimSessionService) save(ctx context.Context, sessionKey string, state ClaimWorkflowState) error {
	if err := s.store.Save(ctx, sessionKey, state, s.ttl); err != nil {
		logger.Warnw("claim_session_save_failed", "phase", state.Phase, "error", err)
		return err
	}
	return nil
}
