package public

import (
	"github.com/bluboy-rewards/internal/http/response"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

var loginErrorRules = []handlershared.MappedError{
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeInternal, Key: "error.captcha_failed"},
	{Target: identity.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: identity.ErrUserDisabled, Code: response.CodeUnauthorized, Key: "error.user_disabled"},
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackKey)
}
