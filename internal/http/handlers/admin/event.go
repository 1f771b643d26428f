package admin

import (
	"strings"
	"time"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// EventRequest 营销活动请求
type EventRequest struct {
	Name                            string       `json:"name" binding:"required"`
	Description                     string       `json:"description"`
	MerchantID                      uint         `json:"merchant_id" binding:"required"`
	MinRewardValue                  models.Money `json:"min_reward_value"`
	MaxRewardValue                  models.Money `json:"max_reward_value"`
	TotalRewards                    int          `json:"total_rewards"`
	DummyRewards                    int          `json:"dummy_rewards"`
	AllowDummyRewards               bool         `json:"allow_dummy_rewards"`
	AllowMultipleRewardsPerCustomer bool         `json:"allow_multiple_rewards_per_customer"`
	StartDate                       time.Time    `json:"start_date" binding:"required"`
	EndDate                         time.Time    `json:"end_date" binding:"required"`
	RewardValidityStart             *time.Time   `json:"reward_validity_start"`
	RewardValidityEnd               *time.Time   `json:"reward_validity_end"`
}

func (r EventRequest) toInput() service.EventInput {
	return service.EventInput{
		Name:                            r.Name,
		Description:                     r.Description,
		MerchantID:                      r.MerchantID,
		MinRewardValue:                  r.MinRewardValue,
		MaxRewardValue:                  r.MaxRewardValue,
		TotalRewards:                    r.TotalRewards,
		DummyRewards:                    r.DummyRewards,
		AllowDummyRewards:               r.AllowDummyRewards,
		AllowMultipleRewardsPerCustomer: r.AllowMultipleRewardsPerCustomer,
		StartDate:                       r.StartDate,
		EndDate:                         r.EndDate,
		RewardValidityStart:             r.RewardValidityStart,
		RewardValidityEnd:               r.RewardValidityEnd,
	}
}

// ListEvents 活动列表
func (h *Handler) ListEvents(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	tenantID, err := handlershared.QueryUint(c, "tenant_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	merchantID, err := handlershared.QueryUint(c, "merchant_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	events, total, err := h.EventService.List(c.Request.Context(), service.EventListInput{
		Page:       page,
		PageSize:   pageSize,
		Status:     strings.TrimSpace(c.Query("status")),
		TenantID:   tenantID,
		MerchantID: merchantID,
		Search:     strings.TrimSpace(c.Query("search")),
	}, scope)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, events, response.BuildPagination(page, pageSize, total))
}

// GetEvent 活动详情
func (h *Handler) GetEvent(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	event, err := h.EventService.Get(c.Request.Context(), id, scope)
	if err != nil {
		respondWithMappedError(c, err, eventErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, event)
}

// CreateEvent 创建草稿活动
func (h *Handler) CreateEvent(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	event, err := h.EventService.Create(c.Request.Context(), req.toInput(), scope)
	if err != nil {
		respondWithMappedError(c, err, concatEventRules(), response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_event_created", "event_id", event.ID, "merchant_id", event.MerchantID)
	response.Success(c, event)
}

// UpdateEvent 更新草稿活动
func (h *Handler) UpdateEvent(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	event, err := h.EventService.Update(c.Request.Context(), id, req.toInput(), scope)
	if err != nil {
		respondWithMappedError(c, err, concatEventRules(), response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, event)
}

// ActivateEvent 激活活动并生成奖励
func (h *Handler) ActivateEvent(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.EventService.Activate(c.Request.Context(), id, scope)
	if err != nil {
		respondWithMappedError(c, err, concatEventRules(), response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_event_activated",
		"event_id", id,
		"generated", result.Generated,
		"async", result.Async,
	)
	response.Success(c, result)
}

// CancelEvent 取消活动
func (h *Handler) CancelEvent(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	event, err := h.EventService.Cancel(c.Request.Context(), id, scope)
	if err != nil {
		respondWithMappedError(c, err, concatEventRules(), response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_event_cancelled", "event_id", id)
	response.Success(c, event)
}

func concatEventRules() []handlershared.MappedError {
	return handlershared.ConcatMappedErrors(eventErrorRules, scopeErrorRules)
}
