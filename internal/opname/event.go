package opname

import (
	"context"
	"fmt"

	"github.com/erazemk/opname/internal/model"
)

// Event is an operator action fed to Session.Apply.
type Event interface {
	event()
}

// ScanEvent delivers a scanned identifier.
type ScanEvent struct{ Value string }

// DecisionEvent answers whether the stored record matches the item.
type DecisionEvent struct{ Matches bool }

// CorrectionEvent submits a corrected draft.
type CorrectionEvent struct{ Draft model.Draft }

// SkipEvent abandons the current item.
type SkipEvent struct{}

// CancelEvent ends the session.
type CancelEvent struct{}

func (ScanEvent) event()       {}
func (DecisionEvent) event()   {}
func (CorrectionEvent) event() {}
func (SkipEvent) event()       {}
func (CancelEvent) event()     {}

// Apply dispatches ev and returns the resulting state.
func (s *Session) Apply(ctx context.Context, ev Event) (State, error) {
	var err error
	switch ev := ev.(type) {
	case ScanEvent:
		_, err = s.Scan(ctx, ev.Value)
	case DecisionEvent:
		err = s.Verify(ev.Matches)
	case CorrectionEvent:
		_, err = s.Correct(ctx, ev.Draft)
	case SkipEvent:
		err = s.Skip()
	case CancelEvent:
		if s.State().Phase == PhaseClosed {
			err = invalid("cancel", PhaseClosed)
		} else {
			s.Close()
		}
	default:
		err = fmt.Errorf("unknown event %T: %w", ev, model.ErrInvalidState)
	}
	return s.State(), err
}
