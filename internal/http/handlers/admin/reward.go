package admin

import (
	"strings"
	"time"

	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// DistributeRequest 发放奖励请求
// RewardID 为空时从活动中挑选一个可用奖励
type DistributeRequest struct {
	RewardID   uint   `json:"reward_id"`
	EventID    uint   `json:"event_id"`
	CustomerID string `json:"customer_id" binding:"required"`
}

// ListRewards 奖励列表，按 outstanding/claimed 分页签
func (h *Handler) ListRewards(c *gin.Context) {
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
	page, pageSize := handlershared.QueryPagination(c)
	result, err := h.RewardService.List(c.Request.Context(), service.RewardListInput{
		Page:       page,
		PageSize:   pageSize,
		Tab:        strings.TrimSpace(c.Query("tab")),
		Status:     strings.TrimSpace(c.Query("status")),
		EventID:    eventID,
		MerchantID: merchantID,
		Search:     strings.TrimSpace(c.Query("search")),
	}, scope)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, gin.H{
		"items": result.Items,
		"stats": result.Stats,
	}, response.BuildPagination(page, pageSize, result.Total))
}

// GetReward 奖励详情
func (h *Handler) GetReward(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	reward, err := h.RewardService.Get(c.Request.Context(), id, scope)
	if err != nil {
		respondWithMappedError(c, err, concatRewardRules(), response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, reward)
}

// DistributeReward 发放奖励
func (h *Handler) DistributeReward(c *gin.Context) {
	var req DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if raw := strings.TrimSpace(c.Param("id")); raw != "" {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}
		req.RewardID = id
	}
	if req.RewardID == 0 && req.EventID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	reward, err := h.RewardService.Distribute(c.Request.Context(), service.DistributeRewardInput{
		RewardID:   req.RewardID,
		EventID:    req.EventID,
		CustomerID: req.CustomerID,
	}, scope)
	if err != nil {
		respondWithMappedError(c, err, concatRewardRules(), response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_reward_distributed", "reward_id", reward.ID, "event_id", reward.EventID)
	response.Success(c, reward)
}

// CancelReward 取消奖励
func (h *Handler) CancelReward(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	reward, err := h.RewardService.Cancel(c.Request.Context(), id, scope)
	if err != nil {
		respondWithMappedError(c, err, concatRewardRules(), response.CodeInternal, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_reward_cancelled", "reward_id", id)
	response.Success(c, reward)
}

// RunExpireSweep 手动触发过期扫描
func (h *Handler) RunExpireSweep(c *gin.Context) {
	now := time.Now()
	rewards, err := h.RewardService.ExpireDue(c.Request.Context(), now)
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	events, err := h.EventService.ExpireEnded(c.Request.Context(), now)
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	requestLog(c).Infow("admin_expire_sweep_done", "rewards_expired", rewards, "events_expired", events)
	response.Success(c, gin.H{"rewards_expired": rewards, "events_expired": events})
}

func concatRewardRules() []handlershared.MappedError {
	return handlershared.ConcatMappedErrors(rewardErrorRules, scopeErrorRules)
}
