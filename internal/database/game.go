// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/peak/internal/cache"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/rating"
	"github.com/sirupsen/logrus"
)

// ErrNoDatabase is returned when a helper is called before ConnectDB.
var ErrNoDatabase = errors.New("database not connected")

// RecordGameResult persists the outcome of a finished game: the game row,
// every player's placement, and the rating update that follows from it.
func RecordGameResult(ctx context.Context, res game.GameResult) error {
	if DB == nil {
		return ErrNoDatabase
	}
	logJSON, err := json.Marshal(res.Log)
	if err != nil {
		return fmt.Errorf("failed to marshal game log: %w", err)
	}
	placements := rating.Placements(res)
	dq := make(map[string]bool, len(res.Disqualified))
	for _, id := range res.Disqualified {
		dq[id] = true
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO peak_games (id, status, winner_id, rounds, log, end_time)
			VALUES ($1, 'completed', NULLIF($2, ''), $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET status = 'completed', winner_id = EXCLUDED.winner_id, rounds = EXCLUDED.rounds,
			    log = EXCLUDED.log, end_time = EXCLUDED.end_time
		`
		if _, e := tx.Exec(ctx, upsertGame, res.GameID, res.WinnerID, res.Rounds, logJSON, endTime(res)); e != nil {
			return e
		}

		batch := &pgx.Batch{}
		for _, p := range res.Players {
			batch.Queue(`
				INSERT INTO peak_game_players (game_id, player_id, display_name, placement, disqualified)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET placement = $4, disqualified = $5
			`, res.GameID, p.ID, p.DisplayName, placements[p.ID], dq[p.ID])
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		return updateRatingsTx(ctx, tx, res)
	})
	if err != nil {
		return fmt.Errorf("tx record game %s: %w", res.GameID, err)
	}
	logrus.Infof("Recorded result of game %s (winner %q)", res.GameID, res.WinnerID)
	return nil
}

func endTime(res game.GameResult) time.Time {
	if res.EndedAt.IsZero() {
		return time.Now()
	}
	return res.EndedAt
}

// updateRatingsTx loads the players' ratings, applies the Glicko2 update for
// res and writes both the new ratings and a history row per player.
func updateRatingsTx(ctx context.Context, tx pgx.Tx, res game.GameResult) error {
	ids := make([]string, 0, len(res.Players))
	for _, p := range res.Players {
		ids = append(ids, p.ID)
	}
	current, err := loadRatings(ctx, tx, ids)
	if err != nil {
		return err
	}
	updated := rating.FinalizeRatings(res, current)

	for _, r := range updated {
		old, ok := current[r.PlayerID]
		if !ok {
			old = rating.NewPlayerRating(r.PlayerID)
		}
		upd := `
			INSERT INTO peak_ratings (player_id, rating, rd, volatility, games)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (player_id) DO UPDATE
			SET rating = $2, rd = $3, volatility = $4, games = $5
		`
		if _, e := tx.Exec(ctx, upd, r.PlayerID, r.Rating, r.RD, r.Volatility, r.Games); e != nil {
			return e
		}
		hist := `
			INSERT INTO peak_rating_history (player_id, game_id, old_rating, new_rating)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (player_id, game_id) DO NOTHING
		`
		if _, e := tx.Exec(ctx, hist, r.PlayerID, res.GameID, old.Rating, r.Rating); e != nil {
			return e
		}
	}
	return nil
}

func loadRatings(ctx context.Context, tx pgx.Tx, ids []string) (map[string]rating.PlayerRating, error) {
	rows, err := tx.Query(ctx, `
		SELECT player_id, rating, rd, volatility, games
		FROM peak_ratings WHERE player_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rating.PlayerRating, error) {
		var r rating.PlayerRating
		err := row.Scan(&r.PlayerID, &r.Rating, &r.RD, &r.Volatility, &r.Games)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	out := make(map[string]rating.PlayerRating, len(list))
	for _, r := range list {
		out[r.PlayerID] = r
	}
	return out, nil
}

// GetRating returns a player's rating, or the starting rating if they have none.
func GetRating(ctx context.Context, playerID string) (rating.PlayerRating, error) {
	if DB == nil {
		return rating.PlayerRating{}, ErrNoDatabase
	}
	r := rating.PlayerRating{PlayerID: playerID}
	err := DB.QueryRow(ctx, `
		SELECT rating, rd, volatility, games FROM peak_ratings WHERE player_id = $1
	`, playerID).Scan(&r.Rating, &r.RD, &r.Volatility, &r.Games)
	if errors.Is(err, pgx.ErrNoRows) {
		return rating.NewPlayerRating(playerID), nil
	}
	return r, err
}

// InsertActions writes a batch of action records in a single transaction,
// creating the game row on first sight and completing it on game_end.
func InsertActions(ctx context.Context, records []cache.GameActionRecord) error {
	if DB == nil {
		return ErrNoDatabase
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of game %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO peak_games (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	at := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, at); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO peak_game_actions (game_id, action_index, actor_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ, rec.GameID, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, at); err != nil {
		return err
	}

	if rec.ActionType == string(game.EventGameEnd) {
		finalizeQ := `
			UPDATE peak_games
			SET status = 'completed', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, at); err != nil {
			return err
		}
	}
	return nil
}

// MarkGameAbandoned flags a game that is still in progress as abandoned.
// It reports whether a row changed.
func MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	if DB == nil {
		return false, ErrNoDatabase
	}
	tag, err := DB.Exec(ctx, `
		UPDATE peak_games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to mark game %s abandoned: %w", gameID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountActions returns how many actions are stored for a game.
func CountActions(ctx context.Context, gameID uuid.UUID) (int, error) {
	if DB == nil {
		return 0, ErrNoDatabase
	}
	var n int
	err := DB.QueryRow(ctx, `SELECT COUNT(*) FROM peak_game_actions WHERE game_id = $1`, gameID).Scan(&n)
	return n, err
}

// GameStatus returns the stored status of a game.
func GameStatus(ctx context.Context, gameID uuid.UUID) (string, error) {
	if DB == nil {
		return "", ErrNoDatabase
	}
	var status string
	err := DB.QueryRow(ctx, `SELECT status FROM peak_games WHERE id = $1`, gameID).Scan(&status)
	return status, err
}
