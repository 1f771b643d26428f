package service

import (
	"context"
	"errors"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/logger"
)

// AuthService 后台登录服务
// 身份校验委托给运行时选定的 identity.Provider。
type AuthService struct {
	provider  identity.Provider
	captcha   *CaptchaService
	loginLogs *LoginLogService
}

// NewAuthService 创建认证服务
func NewAuthService(provider identity.Provider, captcha *CaptchaService, loginLogs *LoginLogService) *AuthService {
	return &AuthService{provider: provider, captcha: captcha, loginLogs: loginLogs}
}

// LoginInput 登录输入
type LoginInput struct {
	Email     string
	Password  string
	Captcha   CaptchaVerifyPayload
	ClientIP  string
	UserAgent string
	RequestID string
}

// Provider 当前身份提供方
func (s *AuthService) Provider() identity.Provider {
	return s.provider
}

// Login 校验验证码与凭据并签发会话，结果写入登录日志
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*identity.Session, error) {
	email := identity.NormalizeEmail(input.Email)
	record := RecordLoginInput{
		Email:     email,
		Provider:  s.provider.Name(),
		ClientIP:  input.ClientIP,
		UserAgent: input.UserAgent,
		RequestID: input.RequestID,
	}

	if err := s.captcha.Verify(constants.CaptchaSceneLogin, input.Captcha); err != nil {
		record.FailReason = constants.LoginLogFailReasonCaptchaInvalid
		s.record(record)
		return nil, err
	}

	session, err := s.provider.Authenticate(ctx, identity.Credentials{Email: email, Password: input.Password})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			record.FailReason = constants.LoginLogFailReasonInvalidCredentials
		case errors.Is(err, identity.ErrUserDisabled):
			record.FailReason = constants.LoginLogFailReasonUserDisabled
		default:
			record.FailReason = constants.LoginLogFailReasonInternalError
		}
		s.record(record)
		return nil, err
	}

	record.Status = constants.LoginLogStatusSuccess
	record.Role = session.Identity.Role
	s.record(record)
	return session, nil
}

// RecordRateLimited 登录被限流时记录日志
func (s *AuthService) RecordRateLimited(email, clientIP, userAgent, requestID string) {
	s.record(RecordLoginInput{
		Email:      identity.NormalizeEmail(email),
		Provider:   s.provider.Name(),
		FailReason: constants.LoginLogFailReasonRateLimited,
		ClientIP:   clientIP,
		UserAgent:  userAgent,
		RequestID:  requestID,
	})
}

// Resolve 解析会话令牌
func (s *AuthService) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	return s.provider.Resolve(ctx, token)
}

// Logout 注销会话
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.provider.Logout(ctx, token)
}

func (s *AuthService) record(input RecordLoginInput) {
	if err := s.loginLogs.Record(input); err != nil {
		logger.Warnw("login_log_record_failed", "email", input.Email, "error", err)
	}
}
