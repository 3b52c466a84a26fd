package services

import (
	"sync"

	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// runState owns the process-wide extraction status. All transitions go
// through tryStart/finishSuccess/finishError; nothing else mutates the
// fields. This mutex-guarded boolean is the system's only concurrency
// control: a second start while running is rejected, never queued.
type runState struct {
	mu          sync.Mutex
	running     bool
	lastError   *string
	lastSuccess *models.RunSummary
}

// tryStart transitions idle -> running, or fails with ErrExtractionRunning.
// Starting a new run clears the previous error.
func (s *runState) tryStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return apperrors.ErrExtractionRunning
	}
	s.running = true
	s.lastError = nil
	return nil
}

// finishSuccess transitions running -> idle and records the run summary.
func (s *runState) finishSuccess(summary models.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastSuccess = &summary
}

// finishError transitions running -> idle and records the failure message.
func (s *runState) finishError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	msg := err.Error()
	s.lastError = &msg
}

// status returns a copy of the current state.
func (s *runState) status() models.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.RunStatus{
		IsRunning:   s.running,
		LastError:   s.lastError,
		LastSuccess: s.lastSuccess,
	}
}

// lastSuccessful returns the last successful run summary, or nil.
func (s *runState) lastSuccessful() *models.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}
