package admin

import (
	"strings"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListLoginLogs 登录日志列表
func (h *Handler) ListLoginLogs(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)

	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	logs, total, err := h.LoginLogService.List(repository.LoginLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		Email:       strings.TrimSpace(c.Query("email")),
		Status:      strings.TrimSpace(c.Query("status")),
		FailReason:  strings.TrimSpace(c.Query("fail_reason")),
		ClientIP:    strings.TrimSpace(c.Query("client_ip")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}
