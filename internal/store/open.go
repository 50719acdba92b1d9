package store

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverKuzu     = "kuzu"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverMemory, DriverSQLite, DriverPostgres, DriverMongo, DriverKuzu}

// Config selects and parameterizes a backend.
type Config struct {
	Driver     string
	Path       string // sqlite file or kuzu directory; kuzu runs in memory when empty
	DSN        string // postgres DSN or mongo URI
	Database   string
	Collection string
}

// Open returns the backend named by cfg.Driver. An empty driver selects the
// in-memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemStore()
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverMongo:
		database, collection := cfg.Database, cfg.Collection
		if database == "" {
			database = "userbridge"
		}
		if collection == "" {
			collection = "users"
		}
		return OpenMongo(ctx, cfg.DSN, database, collection)
	case DriverKuzu:
		if cfg.Path == "" {
			return NewKuzuStore()
		}
		return NewKuzuFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
