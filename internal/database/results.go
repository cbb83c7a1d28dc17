// internal/database/results.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RecordRoomResult persists the final outcome of a room: one row for the
// game, one row per seat-holder. Upserts keep duplicate terminal signals
// harmless.
func RecordRoomResult(ctx context.Context, roomID, gameType, winner string, players []string) error {
	if DB == nil {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, game_type, winner, status)
			VALUES ($1, $2, $3, 'completed')
			ON CONFLICT (id) DO UPDATE SET winner = $3, status = 'completed'
		`
		if _, e := tx.Exec(ctx, upsertGame, roomID, gameType, winner); e != nil {
			return e
		}
		for _, username := range players {
			q := `
				INSERT INTO game_results (game_id, username, did_win)
				VALUES ($1, $2, $3)
				ON CONFLICT (game_id, username) DO UPDATE SET did_win = $3
			`
			if _, e := tx.Exec(ctx, q, roomID, username, username == winner); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// RecordTournamentResult persists a finished tournament's outcome.
func RecordTournamentResult(ctx context.Context, tournamentID, name, gameType, winner string, players []string) error {
	if DB == nil {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO tournaments (id, name, game_type, winner, player_count, status)
			VALUES ($1, $2, $3, $4, $5, 'completed')
			ON CONFLICT (id) DO UPDATE SET winner = $4, status = 'completed'
		`
		_, e := tx.Exec(ctx, q, tournamentID, name, gameType, winner, len(players))
		return e
	})
	if err != nil {
		return fmt.Errorf("tx upsert tournament: %w", err)
	}
	return nil
}
