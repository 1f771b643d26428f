package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleEnUS    = "en-US"
	LocaleZhCN    = "zh-CN"
	DefaultLocale = LocaleEnUS

	localeHeader = "X-Locale"
	localeQuery  = "lang"
)

// T 按语言获取文案，缺失时回退默认语言与 key 本身
func T(locale, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if table, ok := catalog[NormalizeLocale(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 获取文案并格式化参数
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// Has 判断 key 是否存在于默认语言
func Has(key string) bool {
	_, ok := catalog[DefaultLocale][key]
	return ok
}

// ResolveLocale 依次从 query、X-Locale、Accept-Language 解析请求语言
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	candidates := []string{
		c.Query(localeQuery),
		c.GetHeader(localeHeader),
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		if idx := strings.Index(part, ";"); idx >= 0 {
			part = part[:idx]
		}
		candidates = append(candidates, part)
	}
	for _, candidate := range candidates {
		if locale := NormalizeLocale(candidate); locale != "" {
			if _, ok := catalog[locale]; ok && strings.TrimSpace(candidate) != "" {
				return locale
			}
		}
	}
	return DefaultLocale
}

// NormalizeLocale 统一语言标识
func NormalizeLocale(locale string) string {
	normalized := strings.ToLower(strings.TrimSpace(locale))
	switch {
	case normalized == "":
		return DefaultLocale
	case strings.HasPrefix(normalized, "zh"):
		return LocaleZhCN
	case strings.HasPrefix(normalized, "en"):
		return LocaleEnUS
	default:
		return normalized
	}
}
