package model

// AuditLog is a write-once row in the `audit_logs` table recording one
// handled request. It is a pure write sink: nothing in the application reads
// it back, and a failed insert must never affect the primary response.
type AuditLog struct {
	UserID     *uint64 // audit_logs.user_id (nullable actor)
	Action     string  // audit_logs.action (e.g. CREATE, LIST, BULK_CREATE)
	Entity     *string // audit_logs.entity (e.g. "dealer")
	EntityID   *uint64 // audit_logs.entity_id (affected record, when known)
	Method     string  // audit_logs.method
	Path       string  // audit_logs.path (full URL including query)
	StatusCode int     // audit_logs.status_code
	Details    string  // audit_logs.details (sanitized JSON)
	IP         string  // audit_logs.ip
	UserAgent  string  // audit_logs.user_agent
	DurationMS int64   // audit_logs.duration_ms
}
