package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spicebot/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Users and categories",
		Up: func(tx *sql.Tx) error {
			err := execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					email TEXT NOT NULL UNIQUE COLLATE NOCASE,
					full_name TEXT NOT NULL,
					password_hash TEXT NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL,
					last_login DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
					icon TEXT NOT NULL DEFAULT '',
					color TEXT NOT NULL DEFAULT '',
					sort_order INTEGER NOT NULL DEFAULT 0,
					is_default INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS user_categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					custom_name TEXT NOT NULL DEFAULT '',
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (user_id, category_id, custom_name)
				)`,
				`CREATE INDEX idx_user_categories_user ON user_categories(user_id)`,
			})
			if err != nil {
				return err
			}

			stmt, err := tx.Prepare(`
				INSERT INTO categories (name, type, icon, color, sort_order, is_default, is_active)
				VALUES (?, ?, ?, ?, ?, 1, 1)`)
			if err != nil {
				return fmt.Errorf("failed to prepare category seed: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, c := range model.DefaultCategories {
				if _, err := stmt.Exec(c.Name, c.Type, c.Icon, c.Color, c.SortOrder); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Transactions and budgets",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					user_category_id INTEGER NOT NULL REFERENCES user_categories(id),
					type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
					amount TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					transaction_date DATETIME NOT NULL,
					payment_method TEXT NOT NULL DEFAULT '',
					location TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					created_by TEXT NOT NULL DEFAULT 'manual',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, transaction_date)`,
				`CREATE INDEX idx_transactions_category ON transactions(user_category_id)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					user_category_id INTEGER REFERENCES user_categories(id),
					name TEXT NOT NULL,
					budget_type TEXT NOT NULL CHECK (budget_type IN ('monthly', 'weekly', 'yearly')),
					amount TEXT NOT NULL,
					period_start DATETIME NOT NULL,
					period_end DATETIME NOT NULL,
					alert_threshold INTEGER NOT NULL DEFAULT 80,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_budgets_user ON budgets(user_id)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Chat sessions and messages",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS chat_sessions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					session_name TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					ended_at DATETIME,
					is_active INTEGER NOT NULL DEFAULT 1,
					message_count INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_chat_sessions_user ON chat_sessions(user_id, started_at)`,

				`CREATE TABLE IF NOT EXISTS chat_messages (
					id TEXT PRIMARY KEY,
					session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
					user_id TEXT NOT NULL,
					message_type TEXT NOT NULL CHECK (message_type IN ('user', 'bot')),
					content TEXT NOT NULL,
					intent TEXT NOT NULL DEFAULT '',
					entities TEXT,
					confidence REAL,
					action_taken TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_chat_messages_session ON chat_messages(session_id, created_at)`,
				`CREATE INDEX idx_chat_messages_user_created ON chat_messages(user_id, created_at)`,
			})
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version currently recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
