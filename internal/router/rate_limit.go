package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/i18n"
	"github.com/bluboy-rewards/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const localLimiterMaxKeys = 10000

var errRateLimitNoRedis = errors.New("rate limit redis unavailable")

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
	// OnLimited 被限流时回调，在响应写出之前执行
	OnLimited func(c *gin.Context, key string)
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware 频率限制中间件
// 有 Redis 时多实例共享固定窗口计数，Redis 不可用时退化为进程内令牌桶。
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(rule)

	return func(c *gin.Context) {
		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		allowed, waitSeconds, err := allowRedis(c, client, rule, key)
		if err != nil {
			if !errors.Is(err, errRateLimitNoRedis) {
				logger.Warnw("rate_limit_redis_failed", "key", key, "error", err)
			}
			allowed, waitSeconds = local.allow(key)
		}
		if allowed {
			c.Next()
			return
		}

		if rule.OnLimited != nil {
			rule.OnLimited(c, key)
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
		response.Error(c, response.CodeTooManyRequests, msg)
		c.Abort()
	}
}

func allowRedis(c *gin.Context, client *redis.Client, rule RateLimitRule, key string) (bool, int, error) {
	if client == nil {
		return false, 0, errRateLimitNoRedis
	}
	result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected rate limit result %T", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit counter %T", values[0])
	}
	if count <= int64(rule.MaxRequests) {
		return true, 0, nil
	}
	ttlSeconds, _ := toInt64(values[1])
	waitSeconds := int(ttlSeconds)
	if waitSeconds < 1 {
		waitSeconds = rule.WindowSeconds
	}
	return false, waitSeconds, nil
}

// localLimiter 进程内令牌桶，每个 key 一个桶
type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	window   int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(rule RateLimitRule) *localLimiter {
	return &localLimiter{
		limit:    rate.Limit(float64(rule.MaxRequests) / float64(rule.WindowSeconds)),
		burst:    rule.MaxRequests,
		window:   rule.WindowSeconds,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= localLimiterMaxKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	now := time.Now()
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, l.window
	}
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	wait := int(math.Ceil(delay.Seconds()))
	if wait < 1 {
		wait = 1
	}
	return false, wait
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

// KeyBySessionEmail 已登录接口按操作员限流，未登录时退回 IP
func KeyBySessionEmail(c *gin.Context) string {
	if email := sessionEmail(c); email != "" {
		return strings.ToLower(email)
	}
	return c.ClientIP()
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
