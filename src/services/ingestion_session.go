// src/services/ingestion_session.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
)

// SessionSnapshot is a read-only view of a session for the UI.
type SessionSnapshot struct {
	Domain    models.Domain           `json:"domain"`
	State     models.SessionState     `json:"state"`
	HasText   bool                    `json:"has_text"`
	Analysis  *models.Analysis        `json:"analysis,omitempty"`
	Result    *models.IngestionResult `json:"result,omitempty"`
	Message   string                  `json:"message,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// IngestionSession is the paste → analyze → save state machine for one
// operator and domain. Transitions only happen on explicit calls. The mutex
// is never held across store I/O; the SAVING state latches instead.
type IngestionSession struct {
	mu         sync.Mutex
	operator   string
	pipeline   *Pipeline
	state      models.SessionState
	raw        string
	analysis   *models.Analysis
	result     *models.IngestionResult
	message    string
	updatedAt  time.Time
	onTerminal terminalHook
}

// terminalHook runs once per SAVED or FAILED outcome, outside the session lock.
type terminalHook func(ctx context.Context, operator string, result models.IngestionResult, records []models.Record)

func newIngestionSession(operator string, pipeline *Pipeline, onTerminal terminalHook) *IngestionSession {
	return &IngestionSession{
		operator:   operator,
		pipeline:   pipeline,
		state:      models.StateEmpty,
		updatedAt:  time.Now(),
		onTerminal: onTerminal,
	}
}

// Paste stores raw text. From SAVED or FAILED it also acknowledges the
// previous outcome.
func (s *IngestionSession) Paste(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateSaving {
		return ErrSaveInProgress
	}
	s.raw = raw
	s.analysis = nil
	s.result = nil
	s.message = ""
	s.transition(models.StatePasted)
	return nil
}

// Analyze parses the pasted text. With zero resulting records the session
// goes back to PASTED and the input error is returned.
func (s *IngestionSession) Analyze() (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case models.StateSaving:
		return nil, ErrSaveInProgress
	case models.StatePasted, models.StateAnalyzed, models.StateFailed:
	default:
		return nil, fmt.Errorf("%w: cannot analyze in state %s", ErrInvalidTransition, s.state)
	}

	analysis, err := s.pipeline.Analyze(s.raw)
	if err != nil {
		s.analysis = analysis
		s.message = err.Error()
		s.transition(models.StatePasted)
		return analysis, err
	}
	s.analysis = analysis
	s.result = nil
	s.message = ""
	s.transition(models.StateAnalyzed)
	return analysis, nil
}

// Save persists the analyzed records. Resolution errors, and cancellation
// before any row was written, return to ANALYZED. Every other insert error
// ends in FAILED with the result attached, even when the context was cancelled
// after a partial write.
func (s *IngestionSession) Save(ctx context.Context) (*models.IngestionResult, error) {
	s.mu.Lock()
	if s.state == models.StateSaving {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	if s.state != models.StateAnalyzed || s.analysis == nil {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot save in state %s", ErrInvalidTransition, state)
	}
	records := s.analysis.Records
	s.transition(models.StateSaving)
	s.mu.Unlock()

	result, err := s.pipeline.Persist(ctx, records)

	s.mu.Lock()
	switch {
	case err == nil:
		s.raw = ""
		s.result = &result
		s.message = result.Summary()
		s.transition(models.StateSaved)
	case errors.Is(err, ErrResolutionFailed), ctx.Err() != nil && result.AcceptedCount == 0:
		// Nothing was written, so the analysis can be saved again as is.
		s.transition(models.StateAnalyzed)
		if ctx.Err() != nil {
			s.message = "save cancelled"
			s.mu.Unlock()
			return nil, fmt.Errorf("save cancelled: %w", ctx.Err())
		}
		s.message = err.Error()
		s.mu.Unlock()
		return nil, err
	default:
		s.result = &result
		s.message = result.Summary()
		s.transition(models.StateFailed)
	}
	s.mu.Unlock()

	if s.onTerminal != nil {
		s.onTerminal(ctx, s.operator, result, records)
	}
	out := result
	return &out, err
}

// Reset discards everything and returns to EMPTY.
func (s *IngestionSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateSaving {
		return ErrSaveInProgress
	}
	s.raw = ""
	s.analysis = nil
	s.result = nil
	s.message = ""
	s.transition(models.StateEmpty)
	return nil
}

func (s *IngestionSession) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *IngestionSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SessionSnapshot{
		Domain:    s.pipeline.Domain(),
		State:     s.state,
		HasText:   s.raw != "",
		Analysis:  s.analysis,
		Message:   s.message,
		UpdatedAt: s.updatedAt,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// transition must be called with mu held.
func (s *IngestionSession) transition(to models.SessionState) {
	logger.L.Debug("Ingestion session transition", "operator", s.operator, "domain", s.pipeline.Domain(), "from", s.state, "to", to)
	s.state = to
	s.updatedAt = time.Now()
}
