package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取仪表盘总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	data, err := h.AnalyticsService.GetOverview(c.Request.Context(), scope, parseForceRefresh(c))
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, data)
}

// GetRewardAnalytics 获取奖励统计
func (h *Handler) GetRewardAnalytics(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	eventID, err := handlershared.QueryUint(c, "event_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	merchantID, err := handlershared.QueryUint(c, "merchant_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	data, err := h.AnalyticsService.GetRewardAnalytics(c.Request.Context(), service.RewardAnalyticsInput{
		EventID:      eventID,
		MerchantID:   merchantID,
		ForceRefresh: parseForceRefresh(c),
	}, scope)
	if err != nil {
		respondWithMappedError(c, err, scopeErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, data)
}

// GetClaimTrends 获取核销趋势
func (h *Handler) GetClaimTrends(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	from, err := handlershared.ParseTimeNullable(c.Query("from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	to, err := handlershared.ParseTimeNullable(c.Query("to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	data, err := h.AnalyticsService.GetClaimTrends(c.Request.Context(), service.ClaimTrendInput{
		Range:        strings.TrimSpace(c.DefaultQuery("range", "7d")),
		From:         from,
		To:           to,
		Timezone:     strings.TrimSpace(c.Query("tz")),
		ForceRefresh: parseForceRefresh(c),
	}, scope)
	if err != nil {
		respondWithMappedError(c, err, analyticsErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, data)
}

func parseForceRefresh(c *gin.Context) bool {
	value, _ := strconv.ParseBool(strings.TrimSpace(c.Query("force_refresh")))
	return value
}
