package i18n

var catalog = map[string]map[string]string{
	LocaleEnUS: {
		"error.bad_request":              "Invalid request parameters",
		"error.unauthorized":             "Please sign in first",
		"error.forbidden":                "You do not have access to this resource",
		"error.not_found":                "Resource not found",
		"error.internal":                 "Internal server error",
		"error.fetch_failed":             "Failed to load data",
		"error.save_failed":              "Failed to save",
		"error.session_missing":          "Session is missing",
		"error.token_invalid":            "Session is invalid or expired",
		"error.auth_header_invalid":      "Invalid authorization header",
		"error.identity_unavailable":     "Identity provider is unavailable",
		"error.login_invalid":            "Invalid email or password",
		"error.login_failed":             "Sign in failed",
		"error.login_too_many":           "Too many sign in attempts, retry in %d seconds",
		"error.rate_limited":             "Too many requests, retry in %d seconds",
		"error.captcha_required":         "Captcha is required",
		"error.captcha_invalid":          "Captcha is incorrect",
		"error.captcha_failed":           "Captcha verification failed",
		"error.user_disabled":            "Account is disabled",
		"error.tenant_not_found":         "Tenant not found",
		"error.tenant_invalid":           "Invalid tenant data",
		"error.tenant_code_exists":       "Tenant code already exists",
		"error.merchant_not_found":       "Merchant not found",
		"error.merchant_invalid":         "Invalid merchant data, code must be 3 letters or digits",
		"error.merchant_code_exists":     "Merchant code already exists",
		"error.user_not_found":           "User not found",
		"error.user_invalid":             "Invalid user data",
		"error.user_email_exists":        "Email already exists",
		"error.password_min_length":      "Password must be at least %d characters",
		"error.password_require_upper":   "Password must contain an uppercase letter",
		"error.password_require_lower":   "Password must contain a lowercase letter",
		"error.password_require_number":  "Password must contain a number",
		"error.password_require_special": "Password must contain a special character",
		"error.role_invalid":             "Unknown role",
		"error.event_not_found":          "Marketing event not found",
		"error.event_invalid":            "Invalid marketing event data",
		"error.event_immutable":          "Marketing event can no longer be edited",
		"error.event_transition_invalid": "Marketing event status change is not allowed",
		"error.event_not_active":         "Marketing event is not active",
		"error.reward_not_found":         "Reward not found",
		"error.reward_transition":        "Reward status change is not allowed",
		"error.reward_customer_limit":    "Customer already holds a reward for this event",
		"error.reward_none_available":    "No available rewards left for this event",
		"error.reward_code_exhausted":    "Unable to generate unique reward codes",
		"error.reward_generate_failed":   "Failed to generate rewards",
		"error.claim_phase_invalid":      "Claim step is not allowed now, reset and try again",
		"error.analytics_range_invalid":  "Invalid analytics time range",
		"claim.InvalidFormat":            "Reward code must be exactly 8 characters.",
		"claim.NotFound":                 "Reward code not found. Please verify the code.",
		"claim.AlreadyClaimed":           "This reward has already been claimed",
		"claim.Expired":                  "This reward has expired",
		"claim.Cancelled":                "This reward has been cancelled",
		"claim.Conflict":                 "This reward was changed by another operator. Please verify the code again.",
		"claim.ClaimFailed":              "Failed to claim reward. Please try again.",
		"claim.StoreUnavailable":         "Reward store is temporarily unavailable. Please reset and try again.",
		"claim.verified":                 "Reward verified, confirm to claim",
		"claim.success":                  "Reward claimed successfully",
	},
	LocaleZhCN: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "请先登录",
		"error.forbidden":                "无权访问该资源",
		"error.not_found":                "资源不存在",
		"error.internal":                 "服务器内部错误",
		"error.fetch_failed":             "获取数据失败",
		"error.save_failed":              "保存失败",
		"error.session_missing":          "会话缺失",
		"error.token_invalid":            "会话无效或已过期",
		"error.auth_header_invalid":      "Authorization 头格式错误",
		"error.identity_unavailable":     "身份服务不可用",
		"error.login_invalid":            "邮箱或密码错误",
		"error.login_failed":             "登录失败",
		"error.login_too_many":           "登录尝试过多，请 %d 秒后重试",
		"error.rate_limited":             "请求过于频繁，请 %d 秒后重试",
		"error.captcha_required":         "请输入验证码",
		"error.captcha_invalid":          "验证码错误",
		"error.captcha_failed":           "验证码校验失败",
		"error.user_disabled":            "账号已停用",
		"error.tenant_not_found":         "租户不存在",
		"error.tenant_invalid":           "租户数据无效",
		"error.tenant_code_exists":       "租户编码已存在",
		"error.merchant_not_found":       "商户不存在",
		"error.merchant_invalid":         "商户数据无效，编码必须为 3 位字母或数字",
		"error.merchant_code_exists":     "商户编码已存在",
		"error.user_not_found":           "用户不存在",
		"error.user_invalid":             "用户数据无效",
		"error.user_email_exists":        "邮箱已存在",
		"error.password_min_length":      "密码长度至少为 %d 位",
		"error.password_require_upper":   "密码需包含大写字母",
		"error.password_require_lower":   "密码需包含小写字母",
		"error.password_require_number":  "密码需包含数字",
		"error.password_require_special": "密码需包含特殊字符",
		"error.role_invalid":             "未知角色",
		"error.event_not_found":          "营销活动不存在",
		"error.event_invalid":            "营销活动数据无效",
		"error.event_immutable":          "营销活动已不可编辑",
		"error.event_transition_invalid": "营销活动状态不允许变更",
		"error.event_not_active":         "营销活动未生效",
		"error.reward_not_found":         "奖励不存在",
		"error.reward_transition":        "奖励状态不允许变更",
		"error.reward_customer_limit":    "该客户已领取本活动奖励",
		"error.reward_none_available":    "本活动已无可发放奖励",
		"error.reward_code_exhausted":    "无法生成唯一奖励码",
		"error.reward_generate_failed":   "生成奖励失败",
		"error.claim_phase_invalid":      "当前步骤不可执行，请重置后重试",
		"error.analytics_range_invalid":  "统计时间范围无效",
		"claim.InvalidFormat":            "奖励码必须为 8 位",
		"claim.NotFound":                 "奖励码不存在，请核对后重试",
		"claim.AlreadyClaimed":           "该奖励已被核销",
		"claim.Expired":                  "该奖励已过期",
		"claim.Cancelled":                "该奖励已作废",
		"claim.Conflict":                 "该奖励已被其他操作员变更，请重新校验",
		"claim.ClaimFailed":              "核销失败，请重试",
		"claim.StoreUnavailable":         "奖励存储暂不可用，请重置后重试",
		"claim.verified":                 "校验通过，请确认核销",
		"claim.success":                  "核销成功",
	},
}
