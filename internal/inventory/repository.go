// Package inventory holds the working set of inventory records and the
// category registry, and applies every write to the document store first.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/model"
)

// RecordStore persists records. *store.Records implements it.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]model.Record, error)
	GetRecord(ctx context.Context, id string) (model.Record, error)
	AddRecord(ctx context.Context, rec model.Record) (string, error)
	UpdateRecord(ctx context.Context, rec model.Record) error
	DeleteRecord(ctx context.Context, id string) error
}

// Repository is the inventory working set. Local state changes only after
// the store confirmed the write.
type Repository struct {
	store      RecordStore
	categories *Registry
	auth       auth.Provider
	log        *slog.Logger
	now        func() time.Time

	// writeMu serializes creates so the identifier check and the insert
	// see the same records.
	writeMu sync.Mutex

	mu      sync.Mutex
	records []model.Record
	// version counts confirmed writes applied to records.
	version uint64
}

// NewRepository creates an empty repository. Call List to load it.
func NewRepository(s RecordStore, categories *Registry, p auth.Provider, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:      s,
		categories: categories,
		auth:       p,
		log:        logger,
		now:        time.Now,
	}
}

func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// listAttempts bounds how often List refetches when writes keep landing
// while it waits on the store.
const listAttempts = 3

// List fetches all records, replaces the working set and returns them in
// store order. A snapshot fetched while a write was confirmed is never
// installed over that write.
func (r *Repository) List(ctx context.Context) ([]model.Record, error) {
	for attempt := 1; ; attempt++ {
		r.mu.Lock()
		start := r.version
		r.mu.Unlock()

		records, err := r.store.ListRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}

		r.mu.Lock()
		if r.version == start {
			r.records = records
			r.mu.Unlock()
			return clone(records), nil
		}
		r.mu.Unlock()

		if attempt == listAttempts {
			r.log.Warn("working set kept after concurrent writes", "attempts", attempt)
			return r.Records(), nil
		}
	}
}

// Records returns the working set without fetching.
func (r *Repository) Records() []model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.records)
}

// Get fetches a single record from the store.
func (r *Repository) Get(ctx context.Context, id string) (model.Record, error) {
	rec, err := r.store.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, fmt.Errorf("getting record: %w", err)
	}
	return rec, nil
}

// Create validates and stores a new record owned by the signed-in operator.
func (r *Repository) Create(ctx context.Context, in model.NewRecord) (model.Record, error) {
	principal, err := auth.Require(ctx, r.auth)
	if err != nil {
		return model.Record{}, err
	}

	in = in.Normalize()
	if err := r.check(ctx, in.Draft); err != nil {
		return model.Record{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	existing, err := r.store.ListRecords(ctx)
	if err != nil {
		return model.Record{}, fmt.Errorf("checking identifiers: %w", err)
	}

	if in.InventoryID == "" {
		in.InventoryID = generateInventoryID(existing)
	}
	if in.QRCode == "" {
		in.QRCode = in.InventoryID
	}
	if err := checkUnique(existing, in.InventoryID, in.QRCode); err != nil {
		return model.Record{}, err
	}

	now := r.timestamp()
	rec := in.Draft.Apply(model.Record{
		InventoryID: in.InventoryID,
		QRCode:      in.QRCode,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     principal.ID,
	})

	id, err := r.store.AddRecord(ctx, rec)
	if err != nil {
		return model.Record{}, fmt.Errorf("creating record: %w", err)
	}
	rec.ID = id

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.version++
	r.mu.Unlock()

	r.log.Info("record created", "id", rec.ID, "item", rec.InventoryID, "user", principal.Username)
	return rec, nil
}

// Update replaces the editable attributes of a record. Identifiers, owner
// and creation time are kept; updatedAt is refreshed.
func (r *Repository) Update(ctx context.Context, id string, d model.Draft) (model.Record, error) {
	principal, err := auth.Require(ctx, r.auth)
	if err != nil {
		return model.Record{}, err
	}

	d = d.Normalize()
	if err := r.check(ctx, d); err != nil {
		return model.Record{}, err
	}

	current, err := r.store.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, fmt.Errorf("updating record: %w", err)
	}

	updated := d.Apply(current)
	updated.UpdatedAt = r.timestamp()
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt
	}

	if err := r.store.UpdateRecord(ctx, updated); err != nil {
		return model.Record{}, fmt.Errorf("updating record: %w", err)
	}

	r.mu.Lock()
	replaced := false
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		r.records = append(r.records, updated)
	}
	r.version++
	r.mu.Unlock()

	r.log.Info("record updated", "id", id, "item", updated.InventoryID, "condition", updated.Condition, "user", principal.Username)
	return updated, nil
}

// Delete removes a record. Deleting an unknown id fails with
// model.ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id string) error {
	principal, err := auth.Require(ctx, r.auth)
	if err != nil {
		return err
	}

	if err := r.store.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	r.mu.Lock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			break
		}
	}
	r.version++
	r.mu.Unlock()

	r.log.Info("record deleted", "id", id, "user", principal.Username)
	return nil
}

// check validates a normalized draft, then its category.
func (r *Repository) check(ctx context.Context, d model.Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if r.categories == nil {
		return nil
	}
	ok, err := r.categories.Has(ctx, d.Category)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if !ok {
		return &model.ValidationError{Errors: []model.FieldError{{Field: "category", Rule: "unknown"}}}
	}
	return nil
}

func checkUnique(records []model.Record, inventoryID, qrcode string) error {
	for _, rec := range records {
		for _, taken := range []string{rec.InventoryID, rec.QRCode} {
			if taken == "" {
				continue
			}
			if taken == inventoryID {
				return fmt.Errorf("identifier %q: %w", inventoryID, model.ErrDuplicate)
			}
			if taken == qrcode {
				return fmt.Errorf("identifier %q: %w", qrcode, model.ErrDuplicate)
			}
		}
	}
	return nil
}

// generateInventoryID returns an INV-XXXXXXXX identifier not used by any
// record.
func generateInventoryID(records []model.Record) string {
	for {
		id := "INV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		if checkUnique(records, id, id) == nil {
			return id
		}
	}
}

func clone(records []model.Record) []model.Record {
	if records == nil {
		return []model.Record{}
	}
	out := make([]model.Record, len(records))
	copy(out, records)
	return out
}
