package opname

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/erazemk/opname/internal/metrics"
	"github.com/erazemk/opname/internal/model"
)

// Phase is the step a session is in.
type Phase string

// Phases. Confirmed is passed through on a positive verification and is
// never observed from outside.
const (
	PhaseScanning   Phase = "scanning"
	PhaseLookingUp  Phase = "looking_up"
	PhaseVerifying  Phase = "verifying"
	PhaseConfirmed  Phase = "confirmed"
	PhaseCorrecting Phase = "correcting"
	PhaseClosed     Phase = "closed"
)

// Inventory is what a session needs from the record repository.
// *inventory.Repository implements it.
type Inventory interface {
	List(ctx context.Context) ([]model.Record, error)
	Update(ctx context.Context, id string, d model.Draft) (model.Record, error)
}

// State is a snapshot of a session.
type State struct {
	Phase     Phase         `json:"phase"`
	ScanCount int           `json:"scanCount"`
	Current   *model.Record `json:"current,omitempty"`
	Draft     *model.Draft  `json:"draft,omitempty"`
}

// Session is one stocktake run. All methods are safe for concurrent use;
// a second scan or correction while one is in flight fails with
// model.ErrInvalidState.
type Session struct {
	inv     Inventory
	metrics *metrics.Metrics
	log     *slog.Logger

	mu         sync.Mutex
	phase      Phase
	scanCount  int
	current    *model.Record
	draft      *model.Draft
	submitting bool
}

// NewSession starts a session in the scanning phase.
func NewSession(inv Inventory, m *metrics.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	m.SessionOpened()
	return &Session{inv: inv, metrics: m, log: logger, phase: PhaseScanning}
}

func invalid(op string, p Phase) error {
	return fmt.Errorf("%s while %s: %w", op, p, model.ErrInvalidState)
}

// Scan looks up a scanned identifier. On a match the session moves to
// verifying and the record is returned. An unknown identifier or a store
// failure leaves the session scanning.
func (s *Session) Scan(ctx context.Context, value string) (model.Record, error) {
	value = strings.TrimSpace(value)

	s.mu.Lock()
	if s.phase != PhaseScanning {
		p := s.phase
		s.mu.Unlock()
		return model.Record{}, invalid("scan", p)
	}
	s.phase = PhaseLookingUp
	s.mu.Unlock()

	records, err := s.inv.List(ctx)
	var rec model.Record
	if err == nil {
		rec, err = Resolve(value, records)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLookingUp {
		return model.Record{}, invalid("scan", s.phase)
	}

	switch {
	case err == nil:
		s.metrics.Scanned(metrics.ScanFound)
		s.current = &rec
		s.phase = PhaseVerifying
		s.log.Info("item scanned", "item", rec.InventoryID, "id", rec.ID)
		return rec, nil
	case errors.Is(err, model.ErrNotFound):
		s.metrics.Scanned(metrics.ScanNotFound)
		s.log.Info("identifier not found", "identifier", value)
	default:
		s.metrics.Scanned(metrics.ScanError)
		s.log.Error("looking up identifier", "identifier", value, "error", err)
	}
	s.phase = PhaseScanning
	return model.Record{}, err
}

// Verify records the operator's decision. A match counts the item and
// returns to scanning; a mismatch opens a correction draft prefilled from
// the stored record.
func (s *Session) Verify(matches bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseVerifying {
		return invalid("verify", s.phase)
	}

	if !matches {
		d := model.DraftFrom(*s.current)
		s.draft = &d
		s.phase = PhaseCorrecting
		return nil
	}

	s.phase = PhaseConfirmed
	s.scanCount++
	s.metrics.Processed(metrics.ResultMatched)
	s.log.Info("item confirmed", "item", s.current.InventoryID, "count", s.scanCount)
	s.reset()
	return nil
}

// Correct saves a corrected draft for the current record. On failure the
// session stays correcting with the submitted draft kept for a retry.
func (s *Session) Correct(ctx context.Context, d model.Draft) (model.Record, error) {
	s.mu.Lock()
	if s.phase != PhaseCorrecting || s.submitting {
		p := s.phase
		s.mu.Unlock()
		return model.Record{}, invalid("correct", p)
	}
	s.submitting = true
	s.draft = &d
	id := s.current.ID
	s.mu.Unlock()

	updated, err := s.inv.Update(ctx, id, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if s.phase != PhaseCorrecting {
		return model.Record{}, invalid("correct", s.phase)
	}
	if err != nil {
		s.log.Error("saving correction", "id", id, "error", err)
		return model.Record{}, err
	}

	s.scanCount++
	s.metrics.Processed(metrics.ResultCorrected)
	s.log.Info("item corrected", "item", updated.InventoryID, "condition", updated.Condition, "count", s.scanCount)
	s.reset()
	return updated, nil
}

// Skip abandons the current item without counting it.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (s.phase != PhaseVerifying && s.phase != PhaseCorrecting) || s.submitting {
		return invalid("skip", s.phase)
	}
	s.reset()
	return nil
}

// Close ends the session. Every later call fails with
// model.ErrInvalidState.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseClosed {
		return
	}
	s.phase = PhaseClosed
	s.current = nil
	s.draft = nil
	s.metrics.SessionClosed()
	s.log.Info("stocktake closed", "count", s.scanCount)
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{Phase: s.phase, ScanCount: s.scanCount}
	if s.current != nil {
		rec := *s.current
		st.Current = &rec
	}
	if s.draft != nil {
		d := *s.draft
		st.Draft = &d
	}
	return st
}

func (s *Session) reset() {
	s.current = nil
	s.draft = nil
	s.phase = PhaseScanning
}
