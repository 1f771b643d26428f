package public

import (
	"net/http"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// GetCaptcha 获取登录验证码配置与图片挑战
func (h *Handler) GetCaptcha(c *gin.Context) {
	setting := h.CaptchaService.PublicSetting()
	if setting.Provider == constants.CaptchaProviderNone {
		response.Success(c, gin.H{"setting": setting})
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondError(c, response.CodeInternal, "error.captcha_failed", err)
		return
	}
	response.Success(c, gin.H{"setting": setting, "challenge": challenge})
}

// Login 登录并下发会话 Cookie
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	session, err := h.AuthService.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		Captcha:   req.CaptchaPayload.ToServicePayload(),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: handlershared.CurrentRequestID(c),
	})
	if err != nil {
		respondWithMappedError(c, err, loginErrorRules, response.CodeInternal, "error.login_failed")
		return
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	response.Success(c, session)
}

// Logout 注销当前会话
func (h *Handler) Logout(c *gin.Context) {
	token := handlershared.CurrentToken(c)
	if token != "" {
		if err := h.AuthService.Logout(c.Request.Context(), token); err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
	}
	h.clearSessionCookie(c)
	response.Success(c, nil)
}

// Me 获取当前身份与可见导航
func (h *Handler) Me(c *gin.Context) {
	id, ok := handlershared.CurrentIdentity(c)
	if !ok {
		return
	}
	screens, err := h.AuthzService.NavigationFor(id.Role)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, gin.H{
		"identity":   id,
		"navigation": screens,
	})
}

func (h *Handler) cookieName() string {
	name := strings.TrimSpace(h.Config.Auth.CookieName)
	if name == "" {
		return constants.AuthSessionCookie
	}
	return name
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName(), token, maxAge, "/", "", h.Config.Auth.CookieHTTPS, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName(), "", -1, "/", "", h.Config.Auth.CookieHTTPS, true)
}
