package models

// Notification types
const (
	NotifyTypeUploadBatch = "upload_batch"
)

// Notification is a fire-and-forget message shown to the user as a toast.
type Notification struct {
	Type        string         `json:"type,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   int64          `json:"timestamp"` // Unix ms
}
