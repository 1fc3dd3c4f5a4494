// Package cmd holds the shared wiring helpers used by the pressforge
// binaries: persistence and event bus construction from configuration.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pressforge/pressforge/pkg/persistence"
	"github.com/pressforge/pressforge/pkg/persistence/file"
	"github.com/pressforge/pressforge/pkg/persistence/postgresql"
)

// NewPersistence picks the storage backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to initialize postgresql persistence: " + err.Error())
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
