package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the narrative store (SQLite).
var Migrations = migrate.NewGroup("narrative")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_narrative_records",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS narrative_records (
    id          TEXT PRIMARY KEY,
    score       INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
    platform    TEXT NOT NULL DEFAULT '' CHECK (length(CAST(platform AS BLOB)) <= 20),
    alternative TEXT NOT NULL DEFAULT '' CHECK (length(CAST(alternative AS BLOB)) <= 20),
    timestamp   INTEGER NOT NULL DEFAULT 0,
    authority   TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_narrative_records_authority ON narrative_records (authority);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS narrative_records`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_narrative_subscriptions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS narrative_subscriptions (
    id          TEXT PRIMARY KEY,
    subscriber  TEXT NOT NULL,
    start_time  INTEGER NOT NULL,
    end_time    INTEGER NOT NULL CHECK (end_time > start_time),
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_narrative_subscriptions_subscriber ON narrative_subscriptions (subscriber);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS narrative_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_narrative_accounts",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS narrative_accounts (
    address     TEXT PRIMARY KEY,
    balance     INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS narrative_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "add_narrative_subscription_price",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `ALTER TABLE narrative_subscriptions ADD COLUMN price INTEGER NOT NULL DEFAULT 0 CHECK (price >= 0)`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `ALTER TABLE narrative_subscriptions DROP COLUMN price`)
				return err
			},
		},
	)
}
