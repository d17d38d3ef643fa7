package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const DefaultRating = 1000

type Player struct {
	UUID        string `db:"uuid"`
	DisplayName string `db:"display_name"`
	KillCount   int    `db:"kill_count"`
	DeathCount  int    `db:"death_count"`
	AssistCount int    `db:"assist_count"`
	GameCount   int    `db:"game_count"`
	RankScore   int    `db:"rank_score"`
}

func (s *Store) GetPlayer(ctx context.Context, uuid string) (Player, error) {
	var p Player
	err := s.db.GetContext(ctx, &p, "SELECT * FROM player WHERE uuid = ?", uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// CreatePlayer provisions a fresh player row at the default rating.
func (s *Store) CreatePlayer(ctx context.Context, uuid, displayName string) (Player, error) {
	p := Player{
		UUID:        uuid,
		DisplayName: displayName,
		RankScore:   DefaultRating,
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO player (uuid, display_name, rank_score)
		VALUES (:uuid, :display_name, :rank_score)`, p)
	return p, err
}

func (s *Store) UpdateDisplayName(ctx context.Context, uuid, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE player SET display_name = ? WHERE uuid = ?", displayName, uuid)
	return err
}

// UpdatePlayerData overwrites the mutable profile fields of one player.
func (s *Store) UpdatePlayerData(ctx context.Context, p Player) error {
	res, err := s.db.ExecContext(ctx, `UPDATE player
		SET display_name = ?, kill_count = ?, death_count = ?, game_count = ?
		WHERE uuid = ?`,
		p.DisplayName, p.KillCount, p.DeathCount, p.GameCount, p.UUID)
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
