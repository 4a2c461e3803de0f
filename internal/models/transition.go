package models

// Transition reasons
const (
	ReasonIntake     = "intake"
	ReasonTick       = "tick"
	ReasonDeadline   = "deadline"
	ReasonFailure    = "failure"
	ReasonValidation = "validation"
)

// Transition is one journaled status change of a record.
// Intake is journaled with an empty From status.
type Transition struct {
	RecordID string `json:"recordId"`
	From     Status `json:"from"`
	To       Status `json:"to"`
	Progress int    `json:"progress"`
	AtMs     int64  `json:"atMs"` // virtual clock
	Reason   string `json:"reason"`
}

// Overview aggregates the dashboard statistics.
type Overview struct {
	TotalRecords      int            `json:"totalRecords"`
	ByStatus          map[Status]int `json:"byStatus"`
	Expired           int            `json:"expired"`
	Transitions       int            `json:"transitions"`
	Completions       int            `json:"completions"`
	AvgCompletionMs   float64        `json:"avgCompletionMs"`
	VirtualClockMs    int64          `json:"virtualClockMs"`
	NotificationsSent int            `json:"notificationsSent"`
}
