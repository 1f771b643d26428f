package admin

import (
	"github.com/bluboy-rewards/internal/http/response"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/i18n"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

func currentIdentity(c *gin.Context) (*identity.Identity, bool) {
	return handlershared.CurrentIdentity(c)
}

func currentScope(c *gin.Context) (service.AccessScope, bool) {
	return handlershared.CurrentScope(c)
}

func currentRequestID(c *gin.Context) string {
	return handlershared.CurrentRequestID(c)
}

// currentActor 组装核销操作员
func currentActor(c *gin.Context) (service.ClaimActor, bool) {
	id, ok := currentIdentity(c)
	if !ok {
		return service.ClaimActor{}, false
	}
	scope, ok := currentScope(c)
	if !ok {
		return service.ClaimActor{}, false
	}
	return service.ClaimActor{
		Scope:     scope,
		Email:     id.Email,
		Role:      id.Role,
		RequestID: currentRequestID(c),
		Locale:    i18n.ResolveLocale(c),
	}, true
}

// claimSessionKey 每个登录会话独立一份核销状态
func claimSessionKey(id *identity.Identity) string {
	if id == nil {
		return ""
	}
	if id.SessionID != "" {
		return id.SessionID
	}
	return id.Email
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := handlershared.ParamUint(c, "id")
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return id, true
}
