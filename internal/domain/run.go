package domain

import "time"

// RunStatus enumerates CollectionRun lifecycle states.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	// RunPartial is reserved for future partial-success semantics.
	// Nothing assigns it today.
	RunPartial RunStatus = "partial"
)

// maxErrorMessageLen bounds the error text stored on a run record.
const maxErrorMessageLen = 500

// CollectionRun records one execution of a source's collection cycle.
// It is created in the running state before the cycle does any work,
// and updated exactly once to a terminal status when the cycle ends.
type CollectionRun struct {
	ID             string
	Source         string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Status         RunStatus
	PostsCollected int
	ErrorMessage   string
}

// NewCollectionRun returns a run in the running state.
func NewCollectionRun(id, source string, startedAt time.Time) CollectionRun {
	return CollectionRun{
		ID:        id,
		Source:    source,
		StartedAt: startedAt,
		Status:    RunRunning,
	}
}

// Complete transitions the run to a terminal status. The error message,
// if any, is truncated so a pathological failure cannot bloat the ledger.
func (r *CollectionRun) Complete(status RunStatus, completedAt time.Time, errMsg string) {
	if len(errMsg) > maxErrorMessageLen {
		errMsg = errMsg[:maxErrorMessageLen]
	}
	r.Status = status
	r.CompletedAt = &completedAt
	r.ErrorMessage = errMsg
}
