package admin

import (
	"github.com/bluboy-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ClaimVerifyRequest 核销验证请求
type ClaimVerifyRequest struct {
	Code string `json:"code"`
}

// GetClaimSession 当前会话的核销状态
func (h *Handler) GetClaimSession(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	state, err := h.ClaimSessionService.Get(c.Request.Context(), claimSessionKey(id))
	if err != nil {
		respondWithMappedError(c, err, claimErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, state)
}

// VerifyClaim 校验奖励码，成功后进入 verified
// 业务失败以 error 阶段返回，不作为接口错误
func (h *Handler) VerifyClaim(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ClaimVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	state, err := h.ClaimSessionService.Verify(c.Request.Context(), claimSessionKey(id), req.Code, actor)
	if err != nil {
		respondWithMappedError(c, err, claimErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, state)
}

// CommitClaim 确认核销已验证的奖励
func (h *Handler) CommitClaim(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	state, err := h.ClaimSessionService.Commit(c.Request.Context(), claimSessionKey(id), actor)
	if err != nil {
		respondWithMappedError(c, err, claimErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, state)
}

// ResetClaim 回到输入阶段
func (h *Handler) ResetClaim(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	response.Success(c, h.ClaimSessionService.Reset(c.Request.Context(), claimSessionKey(id), actor))
}
