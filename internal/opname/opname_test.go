package opname

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/db"
	"github.com/erazemk/opname/internal/docstore"
	"github.com/erazemk/opname/internal/inventory"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/store"
)

var records = []model.Record{
	{ID: "k1", InventoryID: "INV-001", QRCode: "QR-001", ItemName: "Laptop", Category: "Electronics", Condition: model.ConditionGood},
	{ID: "k2", InventoryID: "INV-002", QRCode: "INV-002", ItemName: "Chair", Category: "Furniture", Condition: model.ConditionGood},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		scanned string
		want    string
		wantErr bool
	}{
		{"INV-001", "k1", false},
		{"QR-001", "k1", false},
		{"INV-002", "k2", false},
		{"qr-001", "", true},
		{"", "", true},
		{"UNKNOWN", "", true},
	}
	for _, tt := range tests {
		rec, err := Resolve(tt.scanned, records)
		if tt.wantErr {
			if !errors.Is(err, model.ErrNotFound) {
				t.Errorf("Resolve(%q): expected ErrNotFound, got %v", tt.scanned, err)
			}
			continue
		}
		if err != nil || rec.ID != tt.want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", tt.scanned, rec.ID, err, tt.want)
		}
	}
}

// fakeInventory serves fixed records and can fail or block on demand.
type fakeInventory struct {
	mu        sync.Mutex
	records   []model.Record
	listErr   error
	updateErr error
	block     chan struct{}
	updates   int
}

func (f *fakeInventory) List(ctx context.Context) ([]model.Record, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Record(nil), f.records...), nil
}

func (f *fakeInventory) Update(ctx context.Context, id string, d model.Draft) (model.Record, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return model.Record{}, f.updateErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i] = d.Apply(f.records[i])
			return f.records[i], nil
		}
	}
	return model.Record{}, model.ErrNotFound
}

func newFake() *fakeInventory {
	return &fakeInventory{records: append([]model.Record(nil), records...)}
}

func TestScanAndConfirm(t *testing.T) {
	s := NewSession(newFake(), nil, nil)
	ctx := context.Background()

	rec, err := s.Scan(ctx, " QR-001\n")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rec.ID != "k1" {
		t.Errorf("expected k1, got %q", rec.ID)
	}
	if st := s.State(); st.Phase != PhaseVerifying || st.Current == nil {
		t.Fatalf("expected verifying with a current record, got %+v", st)
	}

	if err := s.Verify(true); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	st := s.State()
	if st.Phase != PhaseScanning || st.ScanCount != 1 || st.Current != nil {
		t.Errorf("expected scanning, count 1, no record; got %+v", st)
	}
}

func TestScanNotFound(t *testing.T) {
	s := NewSession(newFake(), nil, nil)

	_, err := s.Scan(context.Background(), "NOPE")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if st := s.State(); st.Phase != PhaseScanning || st.ScanCount != 0 {
		t.Errorf("expected scanning with count 0, got %+v", st)
	}
}

func TestScanStoreFailure(t *testing.T) {
	inv := newFake()
	inv.listErr = &model.StoreError{Op: "list_records", Err: context.DeadlineExceeded, Retryable: true}
	s := NewSession(inv, nil, nil)

	_, err := s.Scan(context.Background(), "INV-001")
	var se *model.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if st := s.State(); st.Phase != PhaseScanning {
		t.Errorf("expected scanning after failure, got %s", st.Phase)
	}
}

func TestMismatchAndCorrect(t *testing.T) {
	inv := newFake()
	s := NewSession(inv, nil, nil)
	ctx := context.Background()

	s.Scan(ctx, "INV-002")
	if err := s.Verify(false); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	st := s.State()
	if st.Phase != PhaseCorrecting || st.Draft == nil {
		t.Fatalf("expected correcting with a draft, got %+v", st)
	}
	if *st.Draft != model.DraftFrom(records[1]) {
		t.Errorf("expected draft prefilled from record, got %+v", *st.Draft)
	}

	d := *st.Draft
	d.Condition = model.ConditionDamaged
	updated, err := s.Correct(ctx, d)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if updated.Condition != model.ConditionDamaged {
		t.Errorf("expected damaged, got %q", updated.Condition)
	}
	if st := s.State(); st.Phase != PhaseScanning || st.ScanCount != 1 || st.Draft != nil {
		t.Errorf("expected scanning, count 1, no draft; got %+v", st)
	}
}

func TestCorrectFailureKeepsDraft(t *testing.T) {
	inv := newFake()
	s := NewSession(inv, nil, nil)
	ctx := context.Background()

	s.Scan(ctx, "INV-001")
	s.Verify(false)

	inv.updateErr = &model.StoreError{Op: "update_record", Err: errors.New("offline")}
	d := model.DraftFrom(records[0])
	d.Location = "Storage"
	if _, err := s.Correct(ctx, d); err == nil {
		t.Fatal("expected correction to fail")
	}

	st := s.State()
	if st.Phase != PhaseCorrecting {
		t.Errorf("expected correcting, got %s", st.Phase)
	}
	if st.Draft == nil || st.Draft.Location != "Storage" {
		t.Errorf("expected submitted draft to be kept, got %+v", st.Draft)
	}
	if st.ScanCount != 0 {
		t.Errorf("expected count 0, got %d", st.ScanCount)
	}

	inv.updateErr = nil
	if _, err := s.Correct(ctx, *st.Draft); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.State().ScanCount != 1 {
		t.Errorf("expected count 1 after retry")
	}
}

func TestInvalidTransitions(t *testing.T) {
	s := NewSession(newFake(), nil, nil)
	ctx := context.Background()

	if err := s.Verify(true); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("verify while scanning: expected ErrInvalidState, got %v", err)
	}
	if _, err := s.Correct(ctx, model.Draft{}); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("correct while scanning: expected ErrInvalidState, got %v", err)
	}
	if err := s.Skip(); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("skip while scanning: expected ErrInvalidState, got %v", err)
	}

	s.Scan(ctx, "INV-001")
	if _, err := s.Scan(ctx, "INV-002"); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("scan while verifying: expected ErrInvalidState, got %v", err)
	}
}

func TestSkip(t *testing.T) {
	s := NewSession(newFake(), nil, nil)
	ctx := context.Background()

	s.Scan(ctx, "INV-001")
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip from verifying: %v", err)
	}
	s.Scan(ctx, "INV-001")
	s.Verify(false)
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip from correcting: %v", err)
	}

	if st := s.State(); st.Phase != PhaseScanning || st.ScanCount != 0 || st.Current != nil || st.Draft != nil {
		t.Errorf("expected clean scanning state, got %+v", st)
	}
}

func TestClose(t *testing.T) {
	s := NewSession(newFake(), nil, nil)
	ctx := context.Background()

	s.Scan(ctx, "INV-001")
	s.Close()
	s.Close()

	if _, err := s.Scan(ctx, "INV-001"); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("scan after close: expected ErrInvalidState, got %v", err)
	}
	if err := s.Verify(true); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("verify after close: expected ErrInvalidState, got %v", err)
	}
	if st := s.State(); st.Phase != PhaseClosed || st.Current != nil {
		t.Errorf("expected closed without record, got %+v", st)
	}
}

func TestConcurrentScanRejected(t *testing.T) {
	inv := newFake()
	inv.block = make(chan struct{})
	s := NewSession(inv, nil, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, "INV-001")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.State().Phase != PhaseLookingUp {
		if time.Now().After(deadline) {
			t.Fatal("first scan never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Scan(ctx, "INV-002"); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for second scan, got %v", err)
	}

	close(inv.block)
	if err := <-done; err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if st := s.State(); st.Current == nil || st.Current.ID != "k1" {
		t.Errorf("expected first scan's record, got %+v", st.Current)
	}
}

func TestCloseDuringLookup(t *testing.T) {
	inv := newFake()
	inv.block = make(chan struct{})
	s := NewSession(inv, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background(), "INV-001")
		done <- err
	}()
	for s.State().Phase != PhaseLookingUp {
		time.Sleep(time.Millisecond)
	}

	s.Close()
	close(inv.block)

	if err := <-done; !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if s.State().Phase != PhaseClosed {
		t.Error("expected session to stay closed")
	}
}

func TestApply(t *testing.T) {
	inv := newFake()
	s := NewSession(inv, nil, nil)
	ctx := context.Background()

	steps := []struct {
		ev    Event
		phase Phase
		count int
	}{
		{ScanEvent{Value: "INV-001"}, PhaseVerifying, 0},
		{DecisionEvent{Matches: true}, PhaseScanning, 1},
		{ScanEvent{Value: "QR-001"}, PhaseVerifying, 1},
		{DecisionEvent{Matches: false}, PhaseCorrecting, 1},
		{SkipEvent{}, PhaseScanning, 1},
		{ScanEvent{Value: "INV-002"}, PhaseVerifying, 1},
		{DecisionEvent{Matches: false}, PhaseCorrecting, 1},
		{CorrectionEvent{Draft: model.DraftFrom(records[1])}, PhaseScanning, 2},
		{CancelEvent{}, PhaseClosed, 2},
	}
	for i, step := range steps {
		st, err := s.Apply(ctx, step.ev)
		if err != nil {
			t.Fatalf("step %d (%T): %v", i, step.ev, err)
		}
		if st.Phase != step.phase || st.ScanCount != step.count {
			t.Errorf("step %d (%T): expected %s/%d, got %s/%d", i, step.ev, step.phase, step.count, st.Phase, st.ScanCount)
		}
	}

	if _, err := s.Apply(ctx, CancelEvent{}); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("cancel after close: expected ErrInvalidState, got %v", err)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(newFake(), nil, nil)
	ctx := context.Background()

	first := m.Start("1")
	first.Scan(ctx, "INV-001")
	first.Verify(true)

	second := m.Start("1")
	if first.State().Phase != PhaseClosed {
		t.Error("expected replaced session to be closed")
	}
	if second.State().ScanCount != 0 {
		t.Error("expected new session to start at 0")
	}

	if got, ok := m.Get("1"); !ok || got != second {
		t.Error("expected Get to return the current session")
	}
	if _, ok := m.Get("2"); ok {
		t.Error("expected no session for another principal")
	}

	if !m.End("1") {
		t.Error("expected End to report a session")
	}
	if m.End("1") {
		t.Error("expected second End to report none")
	}
	if second.State().Phase != PhaseClosed {
		t.Error("expected ended session to be closed")
	}
}

// TestStocktakeAgainstRepository runs the match and mismatch flows against
// the real repository and store.
func TestStocktakeAgainstRepository(t *testing.T) {
	records := store.NewRecords(docstore.NewSQLite(db.NewTestDB(t)), time.Second, nil)
	reg := inventory.NewRegistry(records, auth.ContextProvider{}, nil)
	repo := inventory.NewRepository(records, reg, auth.ContextProvider{}, nil)

	ctx := auth.WithPrincipal(context.Background(), model.Principal{ID: "1", Username: "op"})
	if _, err := reg.Add(ctx, "Electronics"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"INV-001", "INV-002"} {
		_, err := repo.Create(ctx, model.NewRecord{
			InventoryID: id,
			Draft: model.Draft{
				ItemName: "Monitor", Brand: "LG", Category: "Electronics",
				Location: "HQ", SubLocation: "Floor 1", Condition: model.ConditionGood,
			},
		})
		if err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	s := NewSession(repo, nil, nil)

	if _, err := s.Scan(ctx, "INV-001"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	s.Verify(true)

	if _, err := s.Scan(ctx, "INV-002"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	s.Verify(false)
	d := *s.State().Draft
	d.Condition = model.ConditionDamaged
	if _, err := s.Correct(ctx, d); err != nil {
		t.Fatalf("Correct: %v", err)
	}

	if n := s.State().ScanCount; n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range listed {
		want := model.ConditionGood
		if rec.InventoryID == "INV-002" {
			want = model.ConditionDamaged
		}
		if rec.Condition != want {
			t.Errorf("%s: expected %s, got %s", rec.InventoryID, want, rec.Condition)
		}
	}
}
