// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the shared pool used by the persistence helpers.
var DB *pgxpool.Pool

// ConnectDB opens the pool for connStr, pings it and stores it in DB.
func ConnectDB(ctx context.Context, connStr string) error {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	logrus.Infof("Connected to database at %s:%d/%s", config.ConnConfig.Host, config.ConnConfig.Port, config.ConnConfig.Database)
	return nil
}

// Close releases the pool, if any.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS peak_games (
	id          UUID PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	winner_id   TEXT,
	rounds      INT NOT NULL DEFAULT 0,
	log         JSONB,
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS peak_game_players (
	game_id      UUID NOT NULL REFERENCES peak_games (id) ON DELETE CASCADE,
	player_id    TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	placement    INT NOT NULL,
	disqualified BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS peak_game_actions (
	game_id        UUID NOT NULL,
	action_index   INT NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);

CREATE TABLE IF NOT EXISTS peak_ratings (
	player_id  TEXT PRIMARY KEY,
	rating     DOUBLE PRECISION NOT NULL,
	rd         DOUBLE PRECISION NOT NULL,
	volatility DOUBLE PRECISION NOT NULL,
	games      INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS peak_rating_history (
	player_id  TEXT NOT NULL,
	game_id    UUID NOT NULL,
	old_rating DOUBLE PRECISION NOT NULL,
	new_rating DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (player_id, game_id)
);
`

// EnsureSchema creates the tables used by the server and the historian.
func EnsureSchema(ctx context.Context) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}
