package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/db"
	"github.com/erazemk/opname/internal/docstore"
	"github.com/erazemk/opname/internal/inventory"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/opname"
	"github.com/erazemk/opname/internal/store"
)

func TestParseArgs(t *testing.T) {
	c, err := parseArgs([]string{"scan", "-u", "op", "-db", "x.db"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if c.command != "scan" {
		t.Errorf("expected scan, got %q", c.command)
	}
	if c.overrides["admin.user"] != "op" || c.overrides["db.path"] != "x.db" {
		t.Errorf("unexpected overrides %v", c.overrides)
	}
	if _, ok := c.overrides["http.addr"]; ok {
		t.Error("expected unset flags not to override")
	}

	c, err = parseArgs(nil)
	if err != nil || c.command != "serve" {
		t.Errorf("expected default serve, got %q (%v)", c.command, err)
	}

	if _, err := parseArgs([]string{"serve", "extra"}); err == nil {
		t.Error("expected error for extra argument")
	}
	if _, err := parseArgs([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
}

func TestGeneratePassword(t *testing.T) {
	p1, err := generatePassword(16)
	if err != nil {
		t.Fatal(err)
	}
	if len(p1) != 16 {
		t.Errorf("expected 16 chars, got %d", len(p1))
	}
	p2, _ := generatePassword(16)
	if p1 == p2 {
		t.Error("expected different passwords")
	}
}

func TestInitDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opname.db")

	database, password, err := initDatabase(path, "boss")
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	defer database.Close()

	if password == "" {
		t.Error("expected a generated password")
	}
	user, err := store.GetUserByUsername(context.Background(), database, "boss")
	if err != nil || user == nil {
		t.Fatalf("expected admin user, got %v (%v)", user, err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", user.Role)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file: %v", err)
	}
}

func newScanSession(t *testing.T) (*opname.Session, *inventory.Repository) {
	t.Helper()
	state := auth.NewState()
	t.Cleanup(state.Close)
	state.SignIn(model.Principal{ID: "1", Username: "op"})

	records := store.NewRecords(docstore.NewSQLite(db.NewTestDB(t)), time.Second, nil)
	reg := inventory.NewRegistry(records, state, nil)
	repo := inventory.NewRepository(records, reg, state, nil)

	ctx := context.Background()
	if _, err := reg.Add(ctx, "Electronics"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"A1", "A2"} {
		_, err := repo.Create(ctx, model.NewRecord{
			InventoryID: id,
			Draft: model.Draft{
				ItemName: "Scanner", Brand: "Zebra", Category: "Electronics",
				Location: "HQ", SubLocation: "Desk", Condition: model.ConditionGood,
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return opname.NewSession(repo, nil, nil), repo
}

func TestRunScanLoop(t *testing.T) {
	sess, repo := newScanSession(t)

	input := strings.Join([]string{
		"NOPE",
		"A1", "y",
		"A2", "n", "", "", "", "Storage", "", "damaged",
		"q",
	}, "\n") + "\n"
	var out strings.Builder

	if err := runScanLoop(context.Background(), newLineReader(strings.NewReader(input)), &out, sess); err != nil {
		t.Fatalf("runScanLoop: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Not found: NOPE", "Confirmed.", "Record corrected.", "2 items processed"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q:\n%s", want, text)
		}
	}

	records, _ := repo.List(context.Background())
	for _, rec := range records {
		if rec.InventoryID != "A2" {
			continue
		}
		if rec.Condition != model.ConditionDamaged || rec.Location != "Storage" {
			t.Errorf("expected A2 damaged in Storage, got %+v", rec)
		}
	}
}

func TestRunScanLoopCorrectionRetry(t *testing.T) {
	sess, _ := newScanSession(t)

	input := strings.Join([]string{
		"A1", "n", "", "", "Unknown", "", "", "",
		"", "", "", "Electronics", "", "", "",
	}, "\n") + "\n"
	var out strings.Builder

	runScanLoop(context.Background(), newLineReader(strings.NewReader(input)), &out, sess)

	text := out.String()
	if !strings.Contains(text, "Saving failed") {
		t.Errorf("expected a failed save:\n%s", text)
	}
	if !strings.Contains(text, "Record corrected.") {
		t.Errorf("expected the retry to succeed:\n%s", text)
	}
	if !strings.Contains(text, "1 items processed") {
		t.Errorf("expected one processed item:\n%s", text)
	}
}

func TestRunScanLoopEndOfInput(t *testing.T) {
	sess, _ := newScanSession(t)

	var out strings.Builder
	if err := runScanLoop(context.Background(), newLineReader(strings.NewReader("A1\n")), &out, sess); err != nil {
		t.Fatal(err)
	}
	if sess.State().Phase != opname.PhaseClosed {
		t.Error("expected session closed at end of input")
	}
}

// closingReader hands out chunks one read at a time and runs before just
// ahead of the second read.
type closingReader struct {
	chunks []string
	reads  int
	before func()
}

func (r *closingReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	r.reads++
	if r.reads == 2 && r.before != nil {
		r.before()
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestRunScanLoopReportsRejectedAnswer(t *testing.T) {
	sess, _ := newScanSession(t)

	in := &closingReader{chunks: []string{"A1\n", "s\n"}, before: sess.Close}
	var out strings.Builder
	if err := runScanLoop(context.Background(), newLineReader(in), &out, sess); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Skipping failed") {
		t.Errorf("expected the rejected skip to be reported, got:\n%s", out.String())
	}
}
