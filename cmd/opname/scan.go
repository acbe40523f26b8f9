package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/config"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/opname"
	"github.com/erazemk/opname/internal/store"
)

// runScan signs the operator in and runs a stocktake on the terminal. Each
// input line is one scanned identifier, which is also how keyboard-wedge
// barcode scanners deliver codes.
func runScan(cfg config.Config, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := auth.NewState()
	defer state.Close()
	unsubscribe := state.Subscribe(func(p model.Principal, ok bool) {
		if ok {
			slog.Info("operator signed in", "user", p.Username)
		} else {
			slog.Info("operator signed out")
		}
	})
	defer unsubscribe()

	a, err := openApp(ctx, cfg, state)
	if err != nil {
		return err
	}
	defer a.Close()

	lines := newLineReader(in)
	if err := signIn(ctx, a, state, lines, out, cfg.Admin.User); err != nil {
		return err
	}
	defer state.SignOut()

	if _, err := a.categories.List(ctx); err != nil {
		return err
	}

	sess := opname.NewSession(a.inventory, a.metrics, nil)
	defer sess.Close()

	return runScanLoop(ctx, lines, out, sess)
}

func signIn(ctx context.Context, a *app, state *auth.State, lines *lineReader, out io.Writer, username string) error {
	fmt.Fprintf(out, "Password for %s: ", username)
	password, ok := lines.next()
	if !ok {
		return fmt.Errorf("no password given")
	}

	user, err := store.GetUserByUsername(ctx, a.db, username)
	if err != nil {
		return err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		slog.Warn("terminal login failed", "username", username)
		return fmt.Errorf("invalid credentials")
	}

	state.SignIn(user.Principal())
	return nil
}

type lineReader struct {
	s *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{s: bufio.NewScanner(r)}
}

// next returns the next trimmed line, or false at end of input.
func (l *lineReader) next() (string, bool) {
	if !l.s.Scan() {
		return "", false
	}
	return strings.TrimSpace(l.s.Text()), true
}

// runScanLoop drives sess from input lines until the operator quits or the
// input ends.
func runScanLoop(ctx context.Context, lines *lineReader, out io.Writer, sess *opname.Session) error {
	for {
		if ctx.Err() != nil {
			sess.Close()
		}

		st := sess.State()
		switch st.Phase {
		case opname.PhaseClosed:
			fmt.Fprintf(out, "Stocktake finished: %d items processed.\n", st.ScanCount)
			return nil

		case opname.PhaseScanning:
			fmt.Fprintf(out, "[%d] scan (q to quit)> ", st.ScanCount)
			line, ok := lines.next()
			if !ok || line == "q" {
				sess.Close()
				continue
			}
			if line == "" {
				continue
			}
			rec, err := sess.Scan(ctx, line)
			switch {
			case errors.Is(err, model.ErrNotFound):
				fmt.Fprintf(out, "Not found: %s\n", line)
			case err != nil:
				fmt.Fprintf(out, "Lookup failed: %v\n", err)
			default:
				printRecord(out, rec)
			}

		case opname.PhaseVerifying:
			fmt.Fprint(out, "Does the item match? [y]es / [n]o / [s]kip: ")
			line, ok := lines.next()
			if !ok {
				sess.Close()
				continue
			}
			switch strings.ToLower(line) {
			case "y", "yes":
				if err := sess.Verify(true); err != nil {
					fmt.Fprintf(out, "Confirming failed: %v\n", err)
				} else {
					fmt.Fprintln(out, "Confirmed.")
				}
			case "n", "no":
				if err := sess.Verify(false); err != nil {
					fmt.Fprintf(out, "Correction failed to start: %v\n", err)
				}
			case "s", "skip":
				if err := sess.Skip(); err != nil {
					fmt.Fprintf(out, "Skipping failed: %v\n", err)
				}
			default:
				fmt.Fprintln(out, "Please answer y, n or s.")
			}

		case opname.PhaseCorrecting:
			d, ok := editDraft(lines, out, *st.Draft)
			if !ok {
				sess.Close()
				continue
			}
			if _, err := sess.Correct(ctx, d); err != nil {
				fmt.Fprintf(out, "Saving failed: %v\n", err)
				fmt.Fprint(out, "Press enter to edit again or s to skip: ")
				if line, ok := lines.next(); !ok || strings.ToLower(line) == "s" {
					if err := sess.Skip(); err != nil {
						fmt.Fprintf(out, "Skipping failed: %v\n", err)
					}
				}
				continue
			}
			fmt.Fprintln(out, "Record corrected.")
		}
	}
}

func printRecord(out io.Writer, rec model.Record) {
	fmt.Fprintf(out, "\n  %s (%s)\n", rec.ItemName, rec.InventoryID)
	fmt.Fprintf(out, "  Brand:        %s\n", rec.Brand)
	fmt.Fprintf(out, "  Category:     %s\n", rec.Category)
	fmt.Fprintf(out, "  Location:     %s / %s\n", rec.Location, rec.SubLocation)
	fmt.Fprintf(out, "  Condition:    %s\n\n", rec.Condition)
}

// editDraft prompts for every editable field. An empty answer keeps the
// shown value.
func editDraft(lines *lineReader, out io.Writer, d model.Draft) (model.Draft, bool) {
	fields := []struct {
		label string
		value *string
	}{
		{"Item name", &d.ItemName},
		{"Brand", &d.Brand},
		{"Category", &d.Category},
		{"Location", &d.Location},
		{"Sub-location", &d.SubLocation},
	}
	for _, f := range fields {
		fmt.Fprintf(out, "%s [%s]: ", f.label, *f.value)
		line, ok := lines.next()
		if !ok {
			return d, false
		}
		if line != "" {
			*f.value = line
		}
	}

	fmt.Fprintf(out, "Condition (good, degraded, damaged) [%s]: ", d.Condition)
	line, ok := lines.next()
	if !ok {
		return d, false
	}
	if line != "" {
		if c, err := model.ParseCondition(line); err == nil {
			d.Condition = c
		} else {
			d.Condition = model.Condition(line)
		}
	}
	return d, true
}
