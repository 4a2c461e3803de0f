// recorders.go - Recording fakes for notifier and transition observer
package testutil

import (
	"strconv"
	"sync"

	"github.com/acord-review/backend/internal/models"
)

// RecordingNotifier implements upload.Notifier and keeps every notification.
type RecordingNotifier struct {
	mu            sync.Mutex
	notifications []models.Notification
}

// NewRecordingNotifier creates an empty RecordingNotifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(notification models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

// Notifications returns a copy of everything received.
func (n *RecordingNotifier) Notifications() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// RecordingObserver implements upload.TransitionObserver.
type RecordingObserver struct {
	mu          sync.Mutex
	transitions []models.Transition
}

// NewRecordingObserver creates an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) RecordTransition(t models.Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, t)
}

// Transitions returns a copy of everything received.
func (o *RecordingObserver) Transitions() []models.Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Transition, len(o.transitions))
	copy(out, o.transitions)
	return out
}

// For returns the transitions of one record.
func (o *RecordingObserver) For(id string) []models.Transition {
	var out []models.Transition
	for _, t := range o.Transitions() {
		if t.RecordID == id {
			out = append(out, t)
		}
	}
	return out
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
