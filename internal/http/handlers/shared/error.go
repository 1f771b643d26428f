package shared

import (
	"errors"

	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/i18n"
	"github.com/bluboy-rewards/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// localizedError 携带文案 key 与参数的业务错误
type localizedError interface {
	Key() string
	Args() []interface{}
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get(RequestIDContextKey); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	msg := i18n.T(locale, key)
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondMappedError 按规则映射业务错误，未命中时按兜底错误返回并记录日志。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	var localized localizedError
	if errors.As(err, &localized) {
		msg := i18n.Sprintf(i18n.ResolveLocale(c), localized.Key(), localized.Args()...)
		response.Error(c, response.CodeBadRequest, msg)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组映射规则。
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
