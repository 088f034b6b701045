package scoredto

// Default credential and tracing header names.
const (
	HeaderAdminToken = "X-Admin-Token"
	HeaderSessionID  = "X-Session-Id"
	HeaderRequestID  = "X-Request-Id"
)
