package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/persistence/file"
	"github.com/weftlabs/weft/pkg/persistence/postgres"
)

// NewPersistence picks a store from the database URL scheme. postgres:// and
// postgresql:// select the Postgres store; anything else is treated as a
// directory path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.NewPersistence(ctx, logger, databaseURL)
	}

	return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
}
