package models

import "time"

// Status represents the lifecycle status of an intake record.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// rank orders statuses along the lifecycle. Error shares the terminal rank
// with Completed: neither may be left once reached.
func (s Status) rank() int {
	switch s {
	case StatusUploading:
		return 1
	case StatusProcessing:
		return 2
	case StatusCompleted, StatusError:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.rank() > 0
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// strictly forward.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// Label returns the human readable status shown on the dashboard.
func (s Status) Label() string {
	switch s {
	case StatusUploading:
		return "Uploading"
	case StatusProcessing:
		return "Processing with AI"
	case StatusCompleted:
		return "Completed"
	default:
		return "Error"
	}
}

// FileIntake is one item of a submitted batch.
type FileIntake struct {
	Name string `json:"name" msgpack:"name"`
	Size int64  `json:"size" msgpack:"size"`
	Type string `json:"type" msgpack:"type"`
}

// FileRecord tracks one submitted ACORD form through the simulated upload lifecycle.
type FileRecord struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	Size       int64     `json:"size" msgpack:"size"`
	Type       string    `json:"type" msgpack:"type"`
	Status     Status    `json:"status" msgpack:"status"`
	Progress   int       `json:"progress" msgpack:"progress"` // 0-100
	Error      string    `json:"error,omitempty" msgpack:"error,omitempty"`
	Expired    bool      `json:"expired,omitempty" msgpack:"expired,omitempty"`
	IntakeAtMs int64     `json:"intakeAtMs" msgpack:"intakeAtMs"` // virtual clock
	CreatedAt  time.Time `json:"createdAt" msgpack:"createdAt"`
}

// NewFileRecord creates a record in uploading status with zero progress.
func NewFileRecord(id string, in FileIntake, intakeAt time.Duration, createdAt time.Time) FileRecord {
	return FileRecord{
		ID:         id,
		Name:       in.Name,
		Size:       in.Size,
		Type:       in.Type,
		Status:     StatusUploading,
		Progress:   0,
		IntakeAtMs: intakeAt.Milliseconds(),
		CreatedAt:  createdAt,
	}
}

// RecordPatch is a partial-field change to a FileRecord. Nil fields are left untouched.
type RecordPatch struct {
	Status   *Status
	Progress *int
	Error    *string
	Expired  *bool
}

// Apply returns r with the patch applied.
func (p RecordPatch) Apply(r FileRecord) FileRecord {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Progress != nil {
		r.Progress = *p.Progress
	}
	if p.Error != nil {
		r.Error = *p.Error
	}
	if p.Expired != nil {
		r.Expired = *p.Expired
	}
	return r
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Status == nil && p.Progress == nil && p.Error == nil && p.Expired == nil
}
