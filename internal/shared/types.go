package shared

// Asynq task types
const (
	TypeProcessProductImage = "imports:process_product_image"
	TypeCleanupTempUploads  = "imports:cleanup_temp_uploads"
)

// Asynq queue names
const (
	QueueImports = "imports"
	QueueDefault = "default"
)

// Context keys set by the auth middleware
const (
	CtxUserID     = "user_id"
	CtxMerchantID = "merchant_id"
	CtxRole       = "role"
)

// Roles carried in JWT claims
const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
)

// ProcessProductImagePayload is the payload for image variant processing.
type ProcessProductImagePayload struct {
	MerchantID string `json:"merchantId"`
	ObjectKey  string `json:"objectKey"`
}

// CleanupTempUploadsPayload is the payload for the scheduled temp-object sweep.
type CleanupTempUploadsPayload struct {
	OlderThanHours int `json:"olderThanHours"`
}
