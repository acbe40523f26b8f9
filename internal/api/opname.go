package api

import (
	"fmt"
	"net/http"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/opname"
)

// OpnameHandler drives the caller's stocktake session.
type OpnameHandler struct {
	Sessions *opname.Manager
}

type scanRequest struct {
	Value string `json:"value"`
}

type verifyRequest struct {
	Matches *bool `json:"matches"`
}

// session returns the caller's open session.
func (h *OpnameHandler) session(r *http.Request) (*opname.Session, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, model.ErrUnauthorized
	}
	s, ok := h.Sessions.Get(p.ID)
	if !ok {
		return nil, fmt.Errorf("stocktake session: %w", model.ErrNotFound)
	}
	return s, nil
}

// Start handles POST /api/opname. Any previous session of the caller is
// closed.
func (h *OpnameHandler) Start(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}
	s := h.Sessions.Start(p.ID)
	jsonResponse(w, http.StatusCreated, s.State())
}

// State handles GET /api/opname.
func (h *OpnameHandler) State(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s.State())
}

// End handles DELETE /api/opname.
func (h *OpnameHandler) End(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	st := s.State()
	p, _ := auth.FromContext(r.Context())
	h.Sessions.End(p.ID)
	st.Phase = opname.PhaseClosed
	st.Current, st.Draft = nil, nil
	jsonResponse(w, http.StatusOK, st)
}

// Scan handles POST /api/opname/scan.
func (h *OpnameHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, opname.ScanEvent{Value: req.Value})
}

// Verify handles POST /api/opname/verify.
func (h *OpnameHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil || req.Matches == nil {
		jsonError(w, http.StatusBadRequest, "matches required")
		return
	}
	h.apply(w, r, opname.DecisionEvent{Matches: *req.Matches})
}

// Correct handles POST /api/opname/correct.
func (h *OpnameHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var req model.Draft
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, opname.CorrectionEvent{Draft: req})
}

// Skip handles POST /api/opname/skip.
func (h *OpnameHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, opname.SkipEvent{})
}

func (h *OpnameHandler) apply(w http.ResponseWriter, r *http.Request, ev opname.Event) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := s.Apply(r.Context(), ev)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, st)
}
