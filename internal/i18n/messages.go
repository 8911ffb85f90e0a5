package i18n

var catalog = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":             "Invalid request",
		"error.validation":              "Validation failed",
		"error.unauthorized":            "Authentication required",
		"error.token_invalid":           "Invalid or expired token",
		"error.forbidden":               "Permission denied",
		"error.not_found":               "Resource not found",
		"error.conflict":                "Resource conflict",
		"error.timeout":                 "Request timed out",
		"error.internal":                "Internal server error",
		"error.too_many_requests":       "Too many requests, please retry later",
		"error.rate_limited":            "Too many requests, retry in %d seconds",
		"error.login_too_many":          "Too many login attempts, retry in %d seconds",
		"error.rate_limit_unavailable":  "Rate limiter unavailable",
		"error.slug_exists":             "Slug already exists",
		"error.slug_invalid":            "Slug may only contain lowercase letters, digits and dashes",
		"error.category_not_found":      "Category not found",
		"error.category_name_required":  "Category name is required",
		"error.product_not_found":       "Product not found",
		"error.product_price_invalid":   "Price must be greater than 0",
		"error.product_stock_invalid":   "Stock must not be negative",
		"error.product_category_absent": "Referenced category does not exist",
		"error.product_name_required":   "Product name is required",
		"error.specification_invalid":   "Specifications do not match the configured schema",
		"error.rule_violation":          "Input violates a validation rule",
		"error.room_type_not_found":     "Room type not found",
		"error.room_type_invalid":       "Invalid room type",
		"error.room_type_in_use":        "Room type is still used by rooms",
		"error.room_not_found":          "Room not found",
		"error.room_invalid":            "Invalid room",
		"error.room_number_exists":      "Room number already exists",
		"error.room_unavailable":        "Room is not available for booking",
		"error.reservation_not_found":   "Reservation not found",
		"error.reservation_range":       "Check-in date must be before check-out date",
		"error.reservation_too_long":    "Stay exceeds the maximum number of nights",
		"error.reservation_guests":      "Guests exceed room capacity",
		"error.reservation_contact":     "Contact details are incomplete",
		"error.reservation_status":      "Unknown reservation status",
		"error.booking_conflict":        "The room is already booked for these dates",
		"error.invalid_transition":      "This status change is not allowed",
		"error.stat_date_invalid":       "Invalid date, expected YYYY-MM-DD",
		"error.stat_counts_invalid":     "Counters must not be negative",
		"error.page_view_invalid":       "Page URL is required",
		"error.admin_login_invalid":     "Invalid username or password",
		"error.admin_exists":            "Admin username already exists",
		"error.admin_invalid":           "Invalid admin account data",
		"error.captcha_required":        "Captcha is required",
		"error.captcha_invalid":         "Captcha is incorrect",
		"error.file_missing":            "File is missing",
		"error.upload_invalid":          "File type or size is not allowed",
		"error.upload_failed":           "Upload failed",
	},
	LocaleZH: {
		"error.bad_request":             "请求参数错误",
		"error.validation":              "参数校验失败",
		"error.unauthorized":            "请先登录",
		"error.token_invalid":           "登录已失效",
		"error.forbidden":               "无权执行该操作",
		"error.not_found":               "资源不存在",
		"error.conflict":                "资源冲突",
		"error.timeout":                 "请求超时",
		"error.internal":                "服务器内部错误",
		"error.too_many_requests":       "请求过于频繁，请稍后再试",
		"error.rate_limited":            "请求过于频繁，请 %d 秒后再试",
		"error.login_too_many":          "登录尝试次数过多，请 %d 秒后再试",
		"error.rate_limit_unavailable":  "限流服务不可用",
		"error.slug_exists":             "标识已存在",
		"error.slug_invalid":            "标识只能包含小写字母、数字与连字符",
		"error.category_not_found":      "分类不存在",
		"error.category_name_required":  "分类名称不能为空",
		"error.product_not_found":       "商品不存在",
		"error.product_price_invalid":   "价格必须大于 0",
		"error.product_stock_invalid":   "库存不能为负数",
		"error.product_category_absent": "引用的分类不存在",
		"error.product_name_required":   "商品名称不能为空",
		"error.specification_invalid":   "商品规格不符合配置",
		"error.rule_violation":          "输入不满足校验规则",
		"error.room_type_not_found":     "房型不存在",
		"error.room_type_invalid":       "房型参数错误",
		"error.room_type_in_use":        "房型仍被房间使用",
		"error.room_not_found":          "房间不存在",
		"error.room_invalid":            "房间参数错误",
		"error.room_number_exists":      "房间号已存在",
		"error.room_unavailable":        "房间暂不可预订",
		"error.reservation_not_found":   "预订不存在",
		"error.reservation_range":       "入住日期必须早于离店日期",
		"error.reservation_too_long":    "入住晚数超出上限",
		"error.reservation_guests":      "入住人数超出房型容量",
		"error.reservation_contact":     "联系方式不完整",
		"error.reservation_status":      "未知的预订状态",
		"error.booking_conflict":        "该房间在所选日期已被预订",
		"error.invalid_transition":      "不允许的状态变更",
		"error.stat_date_invalid":       "日期格式错误，应为 YYYY-MM-DD",
		"error.stat_counts_invalid":     "统计值不能为负数",
		"error.page_view_invalid":       "页面地址不能为空",
		"error.admin_login_invalid":     "用户名或密码错误",
		"error.admin_exists":            "管理员账号已存在",
		"error.admin_invalid":           "管理员参数错误",
		"error.captcha_required":        "请完成验证码",
		"error.captcha_invalid":         "验证码错误",
		"error.file_missing":            "缺少文件",
		"error.upload_invalid":          "文件类型或大小不允许",
		"error.upload_failed":           "上传失败",
	},
}
