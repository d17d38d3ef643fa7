package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bkohler93/ranked-backend/internal/shared/party"
)

type partyRow struct {
	ID        int64                    `db:"id"`
	Holder    string                   `db:"holder"`
	Players   jsonText[[]party.Member] `db:"players"`
	IsInQueue bool                     `db:"is_in_queue"`
}

func (r partyRow) toParty() party.Party {
	return party.Party{
		ID:         r.ID,
		LeaderUUID: r.Holder,
		Members:    r.Players.V,
		Queued:     r.IsInQueue,
	}
}

// UpsertParty creates or replaces a party record; the lobby plugin resends
// the whole composition on every membership change.
func (s *Store) UpsertParty(ctx context.Context, p party.Party) error {
	row := partyRow{
		ID:        p.ID,
		Holder:    p.LeaderUUID,
		Players:   jsonText[[]party.Member]{V: p.Members},
		IsInQueue: p.Queued,
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO party (id, holder, players, is_in_queue)
		VALUES (:id, :holder, :players, :is_in_queue)
		ON CONFLICT(id) DO UPDATE SET holder = :holder, players = :players, is_in_queue = :is_in_queue`, row)
	return err
}

func (s *Store) GetParty(ctx context.Context, id int64) (party.Party, error) {
	var row partyRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM party WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return party.Party{}, ErrNotFound
	}
	if err != nil {
		return party.Party{}, err
	}
	return row.toParty(), nil
}

func (s *Store) DeleteParty(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM party WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPartyByMember finds the party a player belongs to, as holder or member.
// The party table stays small so the membership scan happens in process.
func (s *Store) GetPartyByMember(ctx context.Context, uuid string) (party.Party, error) {
	var rows []partyRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM party"); err != nil {
		return party.Party{}, err
	}
	for _, row := range rows {
		p := row.toParty()
		if p.HasMember(uuid) {
			return p, nil
		}
	}
	return party.Party{}, ErrNotFound
}
