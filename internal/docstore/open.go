package docstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	SQLite      *sql.DB
	MongoURI    string
	MongoDB     string
	PostgresDSN string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.SQLite == nil {
			return nil, fmt.Errorf("sqlite document store needs an open database")
		}
		return NewSQLite(opts.SQLite), nil
	case DriverMongo:
		if opts.MongoURI == "" {
			return nil, fmt.Errorf("mongo document store needs a connection URI")
		}
		m, err := NewMongo(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		return m, nil
	case DriverPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres document store needs a DSN")
		}
		p, err := NewPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown document store driver %q", opts.Driver)
	}
}
