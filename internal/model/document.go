package model

import "time"

// Document is a row in the `documents` table describing one uploaded file
// attached to an (entity, record id) pair. The row is the source of truth;
// the file bytes live under uploads/<entity>/<record id>/<stored name>.
type Document struct {
	ID         uint64    // documents.id
	Entity     string    // documents.entity (allowlisted entity key)
	RecordID   uint64    // documents.record_id
	Filename   string    // documents.filename (display name)
	StoredName string    // documents.stored_name (on-disk name)
	Mime       string    // documents.mime
	SizeBytes  int64     // documents.size_bytes
	UploadedBy *uint64   // documents.uploaded_by (nullable)
	CreatedAt  time.Time // documents.created_at
}
