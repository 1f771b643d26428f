package admin

import "github.com/bluboy-rewards/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于管理端 API，调用方身份与数据范围由会话中间件注入。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
