package service

import "errors"

var (
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRole        = errors.New("invalid role")

	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInvalid      = errors.New("tenant invalid")
	ErrTenantCodeExists   = errors.New("tenant code exists")
	ErrMerchantNotFound   = errors.New("merchant not found")
	ErrMerchantInvalid    = errors.New("merchant invalid")
	ErrMerchantCodeExists = errors.New("merchant code exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInvalid        = errors.New("user invalid")
	ErrUserEmailExists    = errors.New("user email exists")
	ErrWeakPassword       = errors.New("weak password")

	ErrEventNotFound          = errors.New("marketing event not found")
	ErrEventInvalid           = errors.New("marketing event invalid")
	ErrEventImmutable         = errors.New("marketing event immutable")
	ErrEventNotActive         = errors.New("marketing event not active")
	ErrEventTransitionInvalid = errors.New("marketing event transition invalid")

	ErrRewardNotFound        = errors.New("reward not found")
	ErrRewardCustomerLimit   = errors.New("customer already holds a reward for this event")
	ErrRewardCustomerMissing = errors.New("customer id required")
	ErrRewardNoneAvailable   = errors.New("no available reward")
	ErrRewardCodeExhausted   = errors.New("reward code generation exhausted")
	ErrRewardGenerateFailed  = errors.New("reward generation failed")

	ErrClaimPhaseInvalid     = errors.New("claim phase invalid")
	ErrAnalyticsRangeInvalid = errors.New("analytics range invalid")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)
