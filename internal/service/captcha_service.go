package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/config"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"

	"github.com/mojocn/base64Captcha"
)

const captchaCharset = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicSetting 下发给登录页的验证码配置
type CaptchaPublicSetting struct {
	Provider string   `json:"provider"`
	Scenes   []string `json:"scenes"`
}

// CaptchaService 登录图片验证码服务
// Redis 启用时答案存入 Redis，多实例共享；否则使用进程内存储。
type CaptchaService struct {
	cfg   config.CaptchaConfig
	store base64Captcha.Store

	mu     sync.Mutex
	driver base64Captcha.Driver
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig, cacheStore *cache.Store) *CaptchaService {
	cfg = normalizeCaptchaConfig(cfg)
	ttl := time.Duration(cfg.ExpireSeconds) * time.Second
	var store base64Captcha.Store
	if cacheStore.Enabled() {
		store = &redisCaptchaStore{cache: cacheStore, ttl: ttl}
	} else {
		store = base64Captcha.NewMemoryStore(cfg.MaxStore, ttl)
	}
	return &CaptchaService{cfg: cfg, store: store}
}

// Enabled 是否要求登录验证码
func (s *CaptchaService) Enabled() bool {
	return s != nil && s.cfg.Provider == constants.CaptchaProviderImage
}

// PublicSetting 获取公开配置
func (s *CaptchaService) PublicSetting() CaptchaPublicSetting {
	if !s.Enabled() {
		return CaptchaPublicSetting{Provider: constants.CaptchaProviderNone, Scenes: []string{}}
	}
	return CaptchaPublicSetting{Provider: constants.CaptchaProviderImage, Scenes: []string{constants.CaptchaSceneLogin}}
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if !s.Enabled() {
		return nil, ErrCaptchaConfigInvalid
	}
	captcha := base64Captcha.NewCaptcha(s.imageDriver(), s.store)
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 校验验证码，未启用时直接通过
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if !s.Enabled() || scene != constants.CaptchaSceneLogin {
		return nil
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.store.Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) imageDriver() base64Captcha.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		s.driver = base64Captcha.NewDriverString(
			s.cfg.Height,
			s.cfg.Width,
			s.cfg.NoiseCount,
			s.cfg.ShowLine,
			s.cfg.Length,
			captchaCharset,
			nil,
			base64Captcha.DefaultEmbeddedFonts,
			nil,
		)
	}
	return s.driver
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider != constants.CaptchaProviderImage {
		cfg.Provider = constants.CaptchaProviderNone
	}
	if cfg.Length < 4 || cfg.Length > 8 {
		cfg.Length = 5
	}
	if cfg.Width < 100 || cfg.Width > 480 {
		cfg.Width = 240
	}
	if cfg.Height < 40 || cfg.Height > 200 {
		cfg.Height = 80
	}
	if cfg.NoiseCount < 0 {
		cfg.NoiseCount = 0
	}
	if cfg.ShowLine < 0 {
		cfg.ShowLine = 0
	}
	if cfg.ExpireSeconds <= 0 {
		cfg.ExpireSeconds = 300
	}
	if cfg.MaxStore <= 0 {
		cfg.MaxStore = 10240
	}
	return cfg
}

// redisCaptchaStore 实现 base64Captcha.Store
type redisCaptchaStore struct {
	cache *cache.Store
	ttl   time.Duration
}

func captchaKey(id string) string {
	return "captcha:" + id
}

func (r *redisCaptchaStore) Set(id string, value string) error {
	return r.cache.SetJSON(context.Background(), captchaKey(id), strings.ToLower(value), r.ttl)
}

func (r *redisCaptchaStore) Get(id string, clear bool) string {
	ctx := context.Background()
	var value string
	hit, err := r.cache.GetJSON(ctx, captchaKey(id), &value)
	if err != nil {
		logger.Warnw("captcha_store_get_failed", "error", err)
		return ""
	}
	if !hit {
		return ""
	}
	if clear {
		if err := r.cache.Del(ctx, captchaKey(id)); err != nil {
			logger.Warnw("captcha_store_clear_failed", "error", err)
		}
	}
	return value
}

func (r *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	if id == "" || answer == "" {
		return false
	}
	stored := r.Get(id, clear)
	return stored != "" && stored == strings.ToLower(strings.TrimSpace(answer))
}
