package aspect

// Error codes for refusals raised by presets.
const (
	ErrCodeTimeout             = "ASPECT_TIMEOUT"
	ErrCodeRateLimited         = "ASPECT_RATE_LIMITED"
	ErrCodePermissionDenied    = "ASPECT_PERMISSION_DENIED"
	ErrCodeAuthorizationFailed = "ASPECT_AUTHORIZATION_FAILED"
	ErrCodeInvalidConfig       = "ASPECT_INVALID_CONFIG"
	ErrCodeAuditStore          = "ASPECT_AUDIT_STORE"
)
