package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type TeamData struct {
	UUIDs     []string `json:"uuids"`
	TeamScore int      `json:"team_score"`
}

type GameRecord struct {
	ID            string               `db:"id"`
	Status        int                  `db:"status"`
	TeamData      jsonText[[]TeamData] `db:"team_data"`
	GameType      string               `db:"game_type"`
	MapID         sql.NullInt64        `db:"map_id"`
	BanCharacters jsonText[[]int]      `db:"ban_characters"`
	StartTime     sql.NullInt64        `db:"start_time"`
	EndTime       sql.NullInt64        `db:"end_time"`
	WinTeam       int                  `db:"win_team"`
	EventData     sql.NullString       `db:"event_data"`
}

func (s *Store) CreateGame(ctx context.Context, id, gameType string, teams []TeamData, startTime int64) error {
	rec := GameRecord{
		ID:        id,
		TeamData:  jsonText[[]TeamData]{V: teams},
		GameType:  gameType,
		StartTime: sql.NullInt64{Int64: startTime, Valid: true},
		WinTeam:   -1,
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO game (id, status, team_data, game_type, start_time, win_team)
		VALUES (:id, :status, :team_data, :game_type, :start_time, :win_team)`, rec)
	return err
}

func (s *Store) GetGame(ctx context.Context, id string) (GameRecord, error) {
	var rec GameRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM game WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}

func (s *Store) UpdateGameStatus(ctx context.Context, id string, status int) error {
	return s.execOnGame(ctx, "UPDATE game SET status = ? WHERE id = ?", status, id)
}

func (s *Store) SetMapChoice(ctx context.Context, id string, mapID int) error {
	return s.execOnGame(ctx, "UPDATE game SET map_id = ? WHERE id = ?", mapID, id)
}

// SetGameSettings records the pre-game settings report: chosen map,
// character bans, and the game back at idle.
func (s *Store) SetGameSettings(ctx context.Context, id string, mapID int, banCharacters []int, status int) error {
	ban, err := json.Marshal(banCharacters)
	if err != nil {
		return err
	}
	return s.execOnGame(ctx,
		"UPDATE game SET map_id = ?, ban_characters = ?, status = ? WHERE id = ?",
		mapID, string(ban), status, id)
}

// AppendGameEvent appends one event to the game's event log column.
func (s *Store) AppendGameEvent(ctx context.Context, id string, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.execOnGame(ctx,
		"UPDATE game SET event_data = json_insert(COALESCE(event_data, json_array()), '$[#]', json(?)) WHERE id = ?",
		string(raw), id)
}

func (s *Store) execOnGame(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows - %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PlayerResult is one player's outcome inside a FinishGame batch. The
// increments are decided by the caller; a no-team win leaves them all zero.
type PlayerResult struct {
	UUID      string
	NewRating int
	KillInc   int
	DeathInc  int
	AssistInc int
}

// FinishGame closes out a concluded game in one transaction: every player's
// rating and counters together with the game's terminal fields and the final
// outcome event. A failure rolls the whole batch back; ratings are never
// updated without the game record or vice versa.
func (s *Store) FinishGame(ctx context.Context, gameID string, winTeam int, endTime int64, event any, results []PlayerResult) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range results {
		res, err := tx.ExecContext(ctx, `UPDATE player
			SET rank_score = ?,
				game_count = game_count + 1,
				kill_count = kill_count + ?,
				death_count = death_count + ?,
				assist_count = assist_count + ?
			WHERE uuid = ?`,
			r.NewRating, r.KillInc, r.DeathInc, r.AssistInc, r.UUID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("player %s: %w", r.UUID, ErrNotFound)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE game
		SET win_team = ?,
			end_time = ?,
			event_data = json_insert(COALESCE(event_data, json_array()), '$[#]', json(?))
		WHERE id = ?`,
		winTeam, endTime, string(raw), gameID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}

	return tx.Commit()
}
