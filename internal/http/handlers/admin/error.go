package admin

import (
	"github.com/bluboy-rewards/internal/http/response"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/repository"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var scopeErrorRules = []handlershared.MappedError{
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Key: "error.forbidden"},
	{Target: service.ErrInvalidRole, Code: response.CodeForbidden, Key: "error.role_invalid"},
}

var organisationErrorRules = []handlershared.MappedError{
	{Target: service.ErrTenantNotFound, Code: response.CodeNotFound, Key: "error.tenant_not_found"},
	{Target: service.ErrTenantInvalid, Code: response.CodeBadRequest, Key: "error.tenant_invalid"},
	{Target: service.ErrTenantCodeExists, Code: response.CodeConflict, Key: "error.tenant_code_exists"},
	{Target: service.ErrMerchantNotFound, Code: response.CodeNotFound, Key: "error.merchant_not_found"},
	{Target: service.ErrMerchantInvalid, Code: response.CodeBadRequest, Key: "error.merchant_invalid"},
	{Target: service.ErrMerchantCodeExists, Code: response.CodeConflict, Key: "error.merchant_code_exists"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrUserInvalid, Code: response.CodeBadRequest, Key: "error.user_invalid"},
	{Target: service.ErrUserEmailExists, Code: response.CodeConflict, Key: "error.user_email_exists"},
	{Target: service.ErrInvalidRole, Code: response.CodeBadRequest, Key: "error.role_invalid"},
}

var eventErrorRules = []handlershared.MappedError{
	{Target: service.ErrEventNotFound, Code: response.CodeNotFound, Key: "error.event_not_found"},
	{Target: service.ErrEventInvalid, Code: response.CodeBadRequest, Key: "error.event_invalid"},
	{Target: service.ErrEventImmutable, Code: response.CodeConflict, Key: "error.event_immutable"},
	{Target: service.ErrEventTransitionInvalid, Code: response.CodeConflict, Key: "error.event_transition_invalid"},
	{Target: service.ErrEventNotActive, Code: response.CodeConflict, Key: "error.event_not_active"},
	{Target: service.ErrMerchantNotFound, Code: response.CodeNotFound, Key: "error.merchant_not_found"},
	{Target: service.ErrRewardCodeExhausted, Code: response.CodeInternal, Key: "error.reward_code_exhausted"},
	{Target: service.ErrRewardGenerateFailed, Code: response.CodeInternal, Key: "error.reward_generate_failed"},
	{Target: repository.ErrStatusConflict, Code: response.CodeConflict, Key: "error.event_transition_invalid"},
}

var rewardErrorRules = []handlershared.MappedError{
	{Target: service.ErrRewardNotFound, Code: response.CodeNotFound, Key: "error.reward_not_found"},
	{Target: service.ErrEventNotFound, Code: response.CodeNotFound, Key: "error.event_not_found"},
	{Target: service.ErrEventNotActive, Code: response.CodeConflict, Key: "error.event_not_active"},
	{Target: service.ErrRewardCustomerMissing, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrRewardCustomerLimit, Code: response.CodeConflict, Key: "error.reward_customer_limit"},
	{Target: service.ErrRewardNoneAvailable, Code: response.CodeConflict, Key: "error.reward_none_available"},
	{Target: service.ErrFailedPrecondition, Code: response.CodeConflict, Key: "error.reward_transition"},
	{Target: repository.ErrStatusConflict, Code: response.CodeConflict, Key: "error.reward_transition"},
}

var analyticsErrorRules = []handlershared.MappedError{
	{Target: service.ErrAnalyticsRangeInvalid, Code: response.CodeBadRequest, Key: "error.analytics_range_invalid"},
}

var claimErrorRules = []handlershared.MappedError{
	{Target: service.ErrClaimPhaseInvalid, Code: response.CodeConflict, Key: "error.claim_phase_invalid"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Key: "error.forbidden"},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackKey)
}
