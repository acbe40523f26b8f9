// Package opname runs stocktake sessions: an operator scans an identifier,
// confirms the stored record against the physical item, and corrects the
// record when they differ.
package opname

import (
	"fmt"

	"github.com/erazemk/opname/internal/model"
)

// Resolve returns the first record whose inventory id or QR code equals
// scanned.
func Resolve(scanned string, records []model.Record) (model.Record, error) {
	if scanned == "" {
		return model.Record{}, fmt.Errorf("empty identifier: %w", model.ErrNotFound)
	}
	for _, rec := range records {
		if rec.InventoryID == scanned || rec.QRCode == scanned {
			return rec, nil
		}
	}
	return model.Record{}, fmt.Errorf("identifier %q: %w", scanned, model.ErrNotFound)
}
