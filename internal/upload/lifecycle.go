package upload

import "github.com/acord-review/backend/internal/models"

// MaxProgress is the progress value at which an upload is done transferring.
const MaxProgress = 100

// Step applies one tick to r:
//   - uploading below 100 gains step percent, clamped to 100;
//   - uploading at 100 (including the tick that reached it) moves to processing;
//   - processing moves to completed.
//
// Terminal records are returned unchanged.
func Step(r models.FileRecord, step int) models.FileRecord {
	switch r.Status {
	case models.StatusUploading:
		if r.Progress < MaxProgress {
			r.Progress = min(MaxProgress, r.Progress+step)
		}
		if r.Progress >= MaxProgress {
			r.Progress = MaxProgress
			r.Status = models.StatusProcessing
		}
	case models.StatusProcessing:
		r.Status = models.StatusCompleted
	}
	return r
}

// TicksToComplete returns how many ticks a fresh record needs to reach completed.
func TicksToComplete(step int) int {
	if step <= 0 {
		return -1
	}
	uploadTicks := (MaxProgress + step - 1) / step
	return uploadTicks + 1
}
