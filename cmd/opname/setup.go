package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/config"
	"github.com/erazemk/opname/internal/db"
	"github.com/erazemk/opname/internal/docstore"
	"github.com/erazemk/opname/internal/inventory"
	"github.com/erazemk/opname/internal/metrics"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/store"
)

// app is the wired set of components every command works on.
type app struct {
	db         *sql.DB
	docs       docstore.Store
	metrics    *metrics.Metrics
	records    *store.Records
	categories *inventory.Registry
	inventory  *inventory.Repository
}

// openApp opens the local database, creating it with an admin account on
// first run, and the configured document store.
func openApp(ctx context.Context, cfg config.Config, provider auth.Provider) (*app, error) {
	if _, err := os.Stat(cfg.DB.Path); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DB.Path, cfg.Admin.User)
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DB.Path, cfg.Admin.User, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DB.Path)

	docs, err := docstore.Open(ctx, docstore.Options{
		Driver:      cfg.Store.Driver,
		SQLite:      database,
		MongoURI:    cfg.Mongo.URI,
		MongoDB:     cfg.Mongo.Database,
		PostgresDSN: cfg.Postgres.DSN,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	slog.Info("document store ready", "driver", cfg.Store.Driver)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	records := store.NewRecords(docs, cfg.Store.Timeout, m)
	categories := inventory.NewRegistry(records, provider, nil)
	return &app{
		db:         database,
		docs:       docs,
		metrics:    m,
		records:    records,
		categories: categories,
		inventory:  inventory.NewRepository(records, categories, provider, nil),
	}, nil
}

func (a *app) Close() {
	if err := a.docs.Close(); err != nil {
		slog.Error("closing document store", "error", err)
	}
	a.db.Close()
}

// runInit creates the database and admin account and exits.
func runInit(cfg config.Config) error {
	if _, err := os.Stat(cfg.DB.Path); err == nil {
		return fmt.Errorf("database already exists: %s", cfg.DB.Path)
	}

	database, password, err := initDatabase(cfg.DB.Path, cfg.Admin.User)
	if err != nil {
		return err
	}
	database.Close()

	printInitResult(cfg.DB.Path, cfg.Admin.User, password)
	return nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(format string, err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf(format, err)
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail("ensuring schema: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail("hashing password: %w", err)
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return fail("creating admin user: %w", err)
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
