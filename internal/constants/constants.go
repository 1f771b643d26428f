package constants

// 奖励状态常量（线上取值，区分大小写）
const (
	RewardStatusAvailable   = "AVAILABLE"
	RewardStatusDistributed = "DISTRIBUTED"
	RewardStatusClaimed     = "CLAIMED"
	RewardStatusExpired     = "EXPIRED"
	RewardStatusCancelled   = "CANCELLED"
)

// 营销活动状态常量
const (
	EventStatusDraft     = "DRAFT"
	EventStatusActive    = "ACTIVE"
	EventStatusExpired   = "EXPIRED"
	EventStatusCancelled = "CANCELLED"
)

// 组织与用户状态常量
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// 角色常量
const (
	RoleSuperAdmin           = "SUPER_ADMIN"
	RoleTenantMarketingAdmin = "TENANT_MARKETING_ADMIN"
	RoleMerchantAdmin        = "MERCHANT_ADMIN"
)

// 核销流程界面状态
const (
	ClaimPhaseInput    = "input"
	ClaimPhaseVerified = "verified"
	ClaimPhaseSuccess  = "success"
	ClaimPhaseError    = "error"
)

// 核销错误类型
const (
	ClaimErrorInvalidFormat    = "InvalidFormat"
	ClaimErrorNotFound         = "NotFound"
	ClaimErrorAlreadyClaimed   = "AlreadyClaimed"
	ClaimErrorExpired          = "Expired"
	ClaimErrorCancelled        = "Cancelled"
	ClaimErrorConflict         = "Conflict"
	ClaimErrorClaimFailed      = "ClaimFailed"
	ClaimErrorStoreUnavailable = "StoreUnavailable"
)

// 奖励列表分页签
const (
	RewardTabOutstanding = "outstanding"
	RewardTabClaimed     = "claimed"
)

// 奖励码规则
const (
	RewardClaimCodeLength     = 8
	RewardMerchantCodeLength  = 3
	RewardCodeSuffixLength    = 5
	RewardCodePart2Length     = 8
	RewardCodeAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	RewardCodeSeparator       = "-"
	RewardDefaultCurrencyCode = "INR"
)

// 身份提供方
const (
	IdentityProviderStatic   = "static"
	IdentityProviderDatabase = "database"
)

// 会话 Cookie
const (
	AuthSessionCookie = "auth-session"
)

// 验证码提供方与场景
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
	CaptchaSceneLogin    = "login"
)

// 异步任务类型常量
const (
	TaskRewardExpireSweep    = "reward:expire_sweep"
	TaskEventExpireSweep     = "event:expire_sweep"
	TaskEventGenerateRewards = "event:generate_rewards"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 登录日志常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"

	LoginLogFailReasonInvalidCredentials = "invalid_credentials"
	LoginLogFailReasonUserDisabled       = "user_disabled"
	LoginLogFailReasonCaptchaInvalid     = "captcha_invalid"
	LoginLogFailReasonRateLimited        = "rate_limited"
	LoginLogFailReasonInternalError      = "internal_error"
)
