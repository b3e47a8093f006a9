package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actors
	FieldStudentID   = "student_id"
	FieldVolunteerID = "volunteer_id"

	// Chat
	FieldSessionID = "session_id"
	FieldRiskLevel = "risk_level"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)

const headerRequestID = "X-Request-ID"
