package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/config"
	"github.com/Veraticus/spicebot/internal/storage"
	"github.com/spf13/viper"
)

// SPICEBOT_DATABASE_PATH maps to database.path.
var envKeyReplacer = strings.NewReplacer(".", "_")

var startupRetry = common.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2,
}

// openStorage opens the configured database, waits until it answers and
// brings the schema up to date.
func openStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	if dbPath == "" {
		dbPath = config.ExpandPath(viper.GetString("database.path"))
	}

	opts := startupRetry
	opts.Label = "database"
	var store *storage.SQLiteStorage
	err := common.WithRetry(ctx, func() error {
		s, err := storage.NewSQLiteStorage(dbPath)
		if err != nil {
			return err
		}
		store = s
		return nil
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	slog.Debug("database opened", "path", dbPath)

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}
