package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "rw"

// Store Redis 缓存句柄
// 进程内构造一次，关闭时调用 Close；未启用时所有读写为空操作。
type Store struct {
	client *redis.Client
	prefix string
}

// New 根据配置创建缓存句柄，未启用时返回禁用状态的句柄
func New(cfg *config.RedisConfig) *Store {
	if cfg == nil || !cfg.Enabled {
		return &Store{prefix: defaultPrefix}
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.Prefix)
}

// NewWithClient 使用已有客户端创建缓存句柄
func NewWithClient(client *redis.Client, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Enabled 判断缓存是否启用
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Client 获取 Redis 客户端
func (s *Store) Client() *redis.Client {
	if !s.Enabled() {
		return nil
	}
	return s.client
}

// Ping 检查 Redis 连通性
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close 关闭底层连接
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	err := s.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

// GetJSON 获取 JSON 缓存
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	val, err := s.client.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.Key(key), payload, ttl).Err()
}

// Exists 判断键是否存在
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.Key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Del 删除缓存
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.Key(key))
	}
	return s.client.Del(ctx, full...).Err()
}

// DelPattern 按前缀模式删除缓存（SCAN 分批）
func (s *Store) DelPattern(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	iter := s.client.Scan(ctx, 0, s.Key(pattern), 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Key 拼接带前缀的完整键
func (s *Store) Key(key string) string {
	prefix := defaultPrefix
	if s != nil && s.prefix != "" {
		prefix = s.prefix
	}
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return prefix
	}
	return fmt.Sprintf("%s:%s", prefix, trimmed)
}
