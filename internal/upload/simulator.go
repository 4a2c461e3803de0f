// Package upload simulates the lifecycle of submitted ACORD forms.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/acord-review/backend/internal/models"
	"github.com/acord-review/backend/internal/sched"
	"github.com/acord-review/backend/internal/storage"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrTerminal      = errors.New("record already finished")
	ErrEmptyBatch    = errors.New("no files in batch")
	ErrBatchTooLarge = errors.New("too many files in batch")
	ErrInvalidFile   = errors.New("invalid file")
)

const deadlineExceeded = "deadline exceeded"

// Notifier receives the one notification issued per intake batch.
type Notifier interface {
	Notify(n models.Notification)
}

// TransitionObserver is told about every status change, in order.
type TransitionObserver interface {
	RecordTransition(t models.Transition)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithNotifier sets the batch notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Simulator) { s.notifier = n }
}

// WithObserver adds a transition observer.
func WithObserver(o TransitionObserver) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Simulator) { s.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// WithWallClock sets the source of the records' CreatedAt time.
func WithWallClock(now func() time.Time) Option {
	return func(s *Simulator) { s.wallNow = now }
}

// Simulator owns the record store for writes and advances every record
// through uploading, processing and completed on a virtual clock. All
// mutation is serialized by one mutex.
type Simulator struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	cfg       Config
	store     storage.Store
	sched     *sched.Scheduler
	notifier  Notifier
	observers []TransitionObserver
	newID     func() string
	wallNow   func() time.Time
	log       *log.Logger
}

// NewSimulator creates a simulator writing to store.
func NewSimulator(store storage.Store, cfg Config, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:     cfg.normalized(),
		store:   store,
		sched:   sched.New(),
		newID:   uuid.NewString,
		wallNow: time.Now,
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithPrefix("[Simulator]")
	return s
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Intake turns a batch of files into records, starts their ticks and
// deadlines, and issues one notification for the batch. Files failing
// type or size validation are kept but put straight into error.
func (s *Simulator) Intake(files []models.FileIntake) ([]models.FileRecord, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.cfg.MaxBatchFiles > 0 && len(files) > s.cfg.MaxBatchFiles {
		return nil, fmt.Errorf("%w: %d files, limit is %d", ErrBatchTooLarge, len(files), s.cfg.MaxBatchFiles)
	}
	for i, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("%w: file %d has no name", ErrInvalidFile, i)
		}
		if f.Size < 0 {
			return nil, fmt.Errorf("%w: %s has negative size", ErrInvalidFile, f.Name)
		}
	}

	s.mu.Lock()
	now := s.sched.Now()
	createdAt := s.wallNow()

	records := make([]models.FileRecord, len(files))
	rejected := make(map[int]string)
	for i, f := range files {
		records[i] = models.NewFileRecord(s.newID(), f, now, createdAt)
		if reason := s.validate(f); reason != "" {
			rejected[i] = reason
		}
	}

	if err := s.store.Add(records); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("intake: %w", err)
	}

	transitions := make([]models.Transition, 0, len(records)+len(rejected))
	for i, rec := range records {
		transitions = append(transitions, models.Transition{
			RecordID: rec.ID,
			To:       models.StatusUploading,
			AtMs:     now.Milliseconds(),
			Reason:   models.ReasonIntake,
		})

		if reason, bad := rejected[i]; bad {
			updated, tr := s.failLocked(rec, reason, models.ReasonValidation)
			records[i] = updated
			transitions = append(transitions, tr)
			continue
		}

		s.sched.After(s.cfg.TickInterval, rec.ID, sched.KindTick)
		s.sched.After(s.cfg.Deadline, rec.ID, sched.KindDeadline)
	}

	s.unlockAndEmit(transitions)

	s.log.Info("batch accepted", "files", len(records), "rejected", len(rejected))
	s.notifyBatch(records, len(rejected))

	return records, nil
}

func (s *Simulator) validate(f models.FileIntake) string {
	if s.cfg.MaxFileSize > 0 && f.Size > s.cfg.MaxFileSize {
		return fmt.Sprintf("file size %d exceeds limit of %d bytes", f.Size, s.cfg.MaxFileSize)
	}
	if len(s.cfg.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !slices.Contains(s.cfg.AllowedExtensions, ext) {
			return fmt.Sprintf("unsupported file type %q", ext)
		}
	}
	return ""
}

func (s *Simulator) notifyBatch(records []models.FileRecord, rejected int) {
	if s.notifier == nil {
		return
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	s.notifier.Notify(models.Notification{
		Type:        models.NotifyTypeUploadBatch,
		Title:       "Files uploaded",
		Description: fmt.Sprintf("%d ACORD form(s) uploaded successfully", len(records)),
		Data: map[string]any{
			"count":    len(records),
			"rejected": rejected,
			"ids":      ids,
		},
		Timestamp: s.wallNow().UnixMilli(),
	})
}

// Remove deletes the record and cancels its pending tick and deadline.
// Unknown ids are a no-op.
func (s *Simulator) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := s.sched.Cancel(id)
	removed := s.store.Remove(id)
	if removed {
		s.log.Debug("record removed", "record", shortID(id), "cancelledEvents", cancelled)
	}
	return removed
}

// Fail moves a record that is still in flight to error, freezing its
// progress. This is where a real upload or processing failure lands.
func (s *Simulator) Fail(id string, cause error) (models.FileRecord, error) {
	reason := "upload failed"
	if cause != nil {
		reason = cause.Error()
	}

	s.mu.Lock()
	rec, ok := s.store.Get(id)
	if !ok {
		s.mu.Unlock()
		return models.FileRecord{}, fmt.Errorf("fail %s: %w", id, ErrNotFound)
	}
	if rec.Status.IsTerminal() {
		s.mu.Unlock()
		return rec, fmt.Errorf("fail %s (%s): %w", id, rec.Status, ErrTerminal)
	}

	updated, tr := s.failLocked(rec, reason, models.ReasonFailure)
	s.unlockAndEmit([]models.Transition{tr})

	s.log.Warn("record failed", "record", shortID(id), "progress", updated.Progress, "reason", reason)
	return updated, nil
}

// failLocked must be called with s.mu held.
func (s *Simulator) failLocked(rec models.FileRecord, reason, why string) (models.FileRecord, models.Transition) {
	s.sched.Cancel(rec.ID)

	status := models.StatusError
	updated, _ := s.store.Update(rec.ID, models.RecordPatch{Status: &status, Error: &reason})
	return updated, models.Transition{
		RecordID: rec.ID,
		From:     rec.Status,
		To:       models.StatusError,
		Progress: rec.Progress,
		AtMs:     s.sched.Now().Milliseconds(),
		Reason:   why,
	}
}

// Advance moves the virtual clock forward by d, applying every tick and
// deadline that falls due.
func (s *Simulator) Advance(d time.Duration) {
	s.mu.Lock()
	var transitions []models.Transition
	s.sched.Advance(d, func(ev sched.Event) {
		switch ev.Kind {
		case sched.KindTick:
			if tr, ok := s.tickLocked(ev.Key); ok {
				transitions = append(transitions, tr)
			}
		case sched.KindDeadline:
			if tr, ok := s.deadlineLocked(ev.Key); ok {
				transitions = append(transitions, tr)
			}
		}
	})
	s.unlockAndEmit(transitions)
}

// tickLocked must be called with s.mu held.
func (s *Simulator) tickLocked(id string) (models.Transition, bool) {
	rec, ok := s.store.Get(id)
	if !ok || rec.Status.IsTerminal() {
		s.sched.Cancel(id)
		return models.Transition{}, false
	}

	next := Step(rec, s.cfg.Step)
	updated, _ := s.store.Update(id, models.RecordPatch{Status: &next.Status, Progress: &next.Progress})

	if updated.Status.IsTerminal() {
		s.sched.Cancel(id)
		s.log.Debug("record completed", "record", shortID(id), "atMs", s.sched.Now().Milliseconds())
	} else {
		s.sched.After(s.cfg.TickInterval, id, sched.KindTick)
	}

	if updated.Status == rec.Status {
		return models.Transition{}, false
	}
	return models.Transition{
		RecordID: id,
		From:     rec.Status,
		To:       updated.Status,
		Progress: updated.Progress,
		AtMs:     s.sched.Now().Milliseconds(),
		Reason:   models.ReasonTick,
	}, true
}

// deadlineLocked must be called with s.mu held.
func (s *Simulator) deadlineLocked(id string) (models.Transition, bool) {
	s.sched.Cancel(id)

	rec, ok := s.store.Get(id)
	if !ok || rec.Status.IsTerminal() {
		return models.Transition{}, false
	}

	expired := true
	switch s.cfg.DeadlinePolicy {
	case DeadlineError:
		reason := deadlineExceeded
		status := models.StatusError
		s.store.Update(id, models.RecordPatch{Status: &status, Error: &reason, Expired: &expired})
		s.log.Warn("deadline elapsed, record moved to error", "record", shortID(id), "status", rec.Status, "progress", rec.Progress)
		return models.Transition{
			RecordID: id,
			From:     rec.Status,
			To:       status,
			Progress: rec.Progress,
			AtMs:     s.sched.Now().Milliseconds(),
			Reason:   models.ReasonDeadline,
		}, true

	case DeadlineComplete:
		status := models.StatusCompleted
		progress := MaxProgress
		s.store.Update(id, models.RecordPatch{Status: &status, Progress: &progress, Expired: &expired})
		s.log.Warn("deadline elapsed, record forced to completed", "record", shortID(id), "status", rec.Status, "progress", rec.Progress)
		return models.Transition{
			RecordID: id,
			From:     rec.Status,
			To:       status,
			Progress: progress,
			AtMs:     s.sched.Now().Milliseconds(),
			Reason:   models.ReasonDeadline,
		}, true

	default:
		s.store.Update(id, models.RecordPatch{Expired: &expired})
		s.log.Warn("deadline elapsed before completion, record frozen", "record", shortID(id), "status", rec.Status, "progress", rec.Progress)
		return models.Transition{}, false
	}
}

// unlockAndEmit releases s.mu and hands transitions to the observers. The
// emit lock is taken before s.mu is released so observers see transitions
// in the order they happened.
func (s *Simulator) unlockAndEmit(transitions []models.Transition) {
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	for _, tr := range transitions {
		for _, o := range s.observers {
			o.RecordTransition(tr)
		}
	}
}

// Run drives the virtual clock from wall time until ctx is done.
func (s *Simulator) Run(ctx context.Context, resolution time.Duration) error {
	if resolution <= 0 {
		resolution = s.cfg.TickInterval
	}
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()

	s.log.Info("driver started", "resolution", resolution, "tick", s.cfg.TickInterval, "deadline", s.cfg.Deadline, "policy", s.cfg.DeadlinePolicy)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("driver stopped")
			return nil
		case now := <-ticker.C:
			s.Advance(now.Sub(last))
			last = now
		}
	}
}

// Snapshot returns a copy of all records in intake order.
func (s *Simulator) Snapshot() []models.FileRecord {
	return s.store.Snapshot()
}

// Get returns one record.
func (s *Simulator) Get(id string) (models.FileRecord, bool) {
	return s.store.Get(id)
}

// Now returns the virtual clock.
func (s *Simulator) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Now()
}

// Pending returns the number of scheduled events, optionally for one record.
func (s *Simulator) Pending(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		return s.sched.Pending()
	}
	return s.sched.PendingFor(id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
