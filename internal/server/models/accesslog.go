package models

import "time"

// AccessAction is the kind of operation recorded in the access log.
type AccessAction string

const (
	ActionUpload   AccessAction = "upload"
	ActionView     AccessAction = "view"
	ActionDownload AccessAction = "download"
	ActionDelete   AccessAction = "delete"
)

// AccessLogEntry is an append-only audit row.
type AccessLogEntry struct {
	ID            int64        `json:"id"`
	FileID        string       `json:"file_id"`
	UserID        string       `json:"user_id"`
	Action        AccessAction `json:"action"`
	SourceAddress string       `json:"source_address,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
