package constants

// 预订状态常量
const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

// 上传场景常量
const (
	UploadSceneProduct  = "product"
	UploadSceneCategory = "category"
	UploadSceneRoom     = "room"
)

// 队列与任务常量
const (
	QueueDefault        = "default"
	TaskAnalyticsRollup = "analytics:rollup_day"
)

// 内置后台角色
const (
	RoleCatalogEditor   = "catalog_editor"
	RoleBookingManager  = "booking_manager"
	RoleReadonlyAuditor = "readonly_auditor"
)

// DateLayout 日期参数格式
const DateLayout = "2006-01-02"
