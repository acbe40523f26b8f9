package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/opname/internal/docstore"
	"github.com/erazemk/opname/internal/metrics"
	"github.com/erazemk/opname/internal/model"
)

// Collection names.
const (
	CollectionInventories = "inventories"
	CollectionCategories  = "categories"
)

// DefaultTimeout bounds a single document store call.
const DefaultTimeout = 10 * time.Second

// Records maps inventory records and categories onto a document store.
type Records struct {
	docs    docstore.Store
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRecords creates the adapter. A timeout <= 0 disables the per-call bound.
func NewRecords(docs docstore.Store, timeout time.Duration, m *metrics.Metrics) *Records {
	return &Records{docs: docs, timeout: timeout, metrics: m, now: time.Now}
}

// call runs fn under the configured timeout and maps backend errors onto
// the model error taxonomy.
func (r *Records) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	r.metrics.ObserveStore(op, err, time.Since(start))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return model.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &model.StoreError{Op: op, Err: err, Retryable: true}
	default:
		return &model.StoreError{Op: op, Err: err}
	}
}

// ListRecords returns every stored record. Missing timestamps default to now.
func (r *Records) ListRecords(ctx context.Context) ([]model.Record, error) {
	var docs []docstore.Document
	err := r.call(ctx, "list_records", func(ctx context.Context) error {
		var err error
		docs, err = r.docs.List(ctx, CollectionInventories)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	records := make([]model.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, recordFromDocument(d, now))
	}
	return records, nil
}

// GetRecord returns a record by its store key.
func (r *Records) GetRecord(ctx context.Context, id string) (model.Record, error) {
	var doc docstore.Document
	err := r.call(ctx, "get_record", func(ctx context.Context) error {
		var err error
		doc, err = r.docs.Get(ctx, CollectionInventories, id)
		return err
	})
	if err != nil {
		return model.Record{}, fmt.Errorf("record %s: %w", id, err)
	}
	return recordFromDocument(doc, r.now().UTC()), nil
}

// AddRecord persists a new record and returns its store key.
func (r *Records) AddRecord(ctx context.Context, rec model.Record) (string, error) {
	var key string
	err := r.call(ctx, "add_record", func(ctx context.Context) error {
		var err error
		key, err = r.docs.Add(ctx, CollectionInventories, recordFields(rec))
		return err
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// UpdateRecord writes the editable fields and updatedAt of rec.
// Identifiers, owner and creation time are never rewritten.
func (r *Records) UpdateRecord(ctx context.Context, rec model.Record) error {
	fields := map[string]any{
		"itemName":    rec.ItemName,
		"brand":       rec.Brand,
		"category":    rec.Category,
		"location":    rec.Location,
		"subLocation": rec.SubLocation,
		"condition":   string(rec.Condition),
		"updatedAt":   rec.UpdatedAt.UTC(),
	}
	err := r.call(ctx, "update_record", func(ctx context.Context) error {
		return r.docs.Update(ctx, CollectionInventories, rec.ID, fields)
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteRecord removes a record.
func (r *Records) DeleteRecord(ctx context.Context, id string) error {
	err := r.call(ctx, "delete_record", func(ctx context.Context) error {
		return r.docs.Delete(ctx, CollectionInventories, id)
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	return nil
}

// ListCategories returns every stored category in store order, including
// duplicates written by older clients.
func (r *Records) ListCategories(ctx context.Context) ([]model.Category, error) {
	var docs []docstore.Document
	err := r.call(ctx, "list_categories", func(ctx context.Context) error {
		var err error
		docs, err = r.docs.List(ctx, CollectionCategories)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	categories := make([]model.Category, 0, len(docs))
	for _, d := range docs {
		name := strings.TrimSpace(stringField(d.Fields, "name"))
		if name == "" {
			continue
		}
		created, ok := timeField(d.Fields["createdAt"])
		if !ok {
			created = now
		}
		categories = append(categories, model.Category{Name: name, CreatedAt: created})
	}
	return categories, nil
}

// AddCategory persists a category.
func (r *Records) AddCategory(ctx context.Context, c model.Category) error {
	return r.call(ctx, "add_category", func(ctx context.Context) error {
		_, err := r.docs.Add(ctx, CollectionCategories, map[string]any{
			"name":      c.Name,
			"createdAt": c.CreatedAt.UTC(),
		})
		return err
	})
}

func recordFields(rec model.Record) map[string]any {
	return map[string]any{
		"inventoryId": rec.InventoryID,
		"qrcode":      rec.QRCode,
		"itemName":    rec.ItemName,
		"brand":       rec.Brand,
		"category":    rec.Category,
		"location":    rec.Location,
		"subLocation": rec.SubLocation,
		"condition":   string(rec.Condition),
		"createdAt":   rec.CreatedAt.UTC(),
		"updatedAt":   rec.UpdatedAt.UTC(),
		"userId":      rec.OwnerID,
	}
}

func recordFromDocument(d docstore.Document, now time.Time) model.Record {
	f := d.Fields
	rec := model.Record{
		ID:          d.Key,
		InventoryID: stringField(f, "inventoryId"),
		QRCode:      stringField(f, "qrcode"),
		ItemName:    stringField(f, "itemName"),
		Brand:       stringField(f, "brand"),
		Category:    stringField(f, "category"),
		Location:    stringField(f, "location"),
		SubLocation: stringField(f, "subLocation"),
		OwnerID:     stringField(f, "userId"),
	}
	if rec.OwnerID == "" {
		rec.OwnerID = stringField(f, "ownerId")
	}

	raw := stringField(f, "condition")
	if c, err := model.ParseCondition(raw); err == nil {
		rec.Condition = c
	} else {
		rec.Condition = model.Condition(raw)
	}

	var ok bool
	if rec.CreatedAt, ok = timeField(f["createdAt"]); !ok {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt, ok = timeField(f["updatedAt"]); !ok {
		rec.UpdatedAt = now
	}
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}
	return rec
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func timeField(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), !t.IsZero()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.UTC(), true
	default:
		return time.Time{}, false
	}
}
