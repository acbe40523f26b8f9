package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/opname/internal/inventory"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/report"
)

// InventoryHandler handles inventory record endpoints.
type InventoryHandler struct {
	Repo *inventory.Repository
}

// List handles GET /api/inventory. The optional q parameter filters by
// item name, brand, category or location.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, inventory.Search(r.URL.Query().Get("q"), records))
}

// Get handles GET /api/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Create handles POST /api/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewRecord
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Repo.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

// Update handles PUT /api/inventory/{id}.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.Draft
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Repo.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "record deleted"})
}

// Summary handles GET /api/inventory/summary.
func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	records, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, inventory.Summarize(records))
}

// Export handles GET /api/inventory/export and streams an XLSX report.
func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := report.Write(&buf, inventory.Search(r.URL.Query().Get("q"), records), now); err != nil {
		slog.Error("failed to build report", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(now)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
