package public

import "github.com/bluboy-rewards/internal/provider"

// Handler 登录与会话接口处理器入口
// 说明：该处理器只承载未登录可访问及会话自身的接口。
type Handler struct {
	*provider.Container
}

// New 创建会话处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
