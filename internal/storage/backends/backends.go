// Package backends opens the archive backend named in configuration.
package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/sift/internal/storage"
	"github.com/FranksOps/sift/internal/storage/csvbackend"
	"github.com/FranksOps/sift/internal/storage/jsonbackend"
	"github.com/FranksOps/sift/internal/storage/postgres"
	"github.com/FranksOps/sift/internal/storage/sqlite"
)

// Open returns the backend called name, connected to dsn. For file backends
// dsn is a path. An empty name or "none" returns a nil Backend and no error.
func Open(ctx context.Context, name, dsn string) (storage.Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == storage.BackendNone {
		return nil, nil
	}
	if dsn == "" {
		return nil, fmt.Errorf("archive backend %q requires a dsn", name)
	}

	switch name {
	case storage.BackendSQLite:
		return sqlite.New(dsn)
	case storage.BackendPostgres:
		return postgres.New(ctx, dsn)
	case storage.BackendJSON:
		return jsonbackend.New(dsn)
	case storage.BackendCSV:
		return csvbackend.New(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, name)
	}
}
