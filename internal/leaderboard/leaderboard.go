// Package leaderboard keeps the global rank-score standings in a redis
// sorted set. It is advisory state rebuilt from the store's ratings; a
// failed update is logged by callers, never fatal.
package leaderboard

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const rankScoreKey = "leaderboard:rank_score"

type Leaderboard struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

// SetRating records a player's current rating.
func (l *Leaderboard) SetRating(ctx context.Context, uuid string, rating int) error {
	return l.rdb.ZAdd(ctx, rankScoreKey, redis.Z{
		Score:  float64(rating),
		Member: uuid,
	}).Err()
}

// Standing returns the player's 1-based position ordered by descending
// rating, or 0 when the player has no entry yet.
func (l *Leaderboard) Standing(ctx context.Context, uuid string) (int64, error) {
	rank, err := l.rdb.ZRevRank(ctx, rankScoreKey, uuid).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rank + 1, nil
}

// Entry is one row of the standings.
type Entry struct {
	UUID   string
	Rating int
}

func (l *Leaderboard) Top(ctx context.Context, n int64) ([]Entry, error) {
	zs, err := l.rdb.ZRevRangeWithScores(ctx, rankScoreKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		uuid, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{UUID: uuid, Rating: int(z.Score)})
	}
	return entries, nil
}
