package sortedstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// expansionScale keeps expansions from outranking a whole tick.
const expansionScale = 1e9

// RedisLeaderboard ranks successful episodes in one sorted set per algorithm,
// scored by ticks first and expansions second. Standings live in a hash next
// to the set.
type RedisLeaderboard struct {
	client *redis.Client
	locker *redsync.Redsync
	prefix string
	size   int64
}

// NewRedisLeaderboard keeps the best size episodes of every algorithm.
func NewRedisLeaderboard(client *redis.Client, prefix string, size int64) (*RedisLeaderboard, error) {
	if client == nil {
		return nil, errors.New("leaderboard needs a redis client")
	}
	if size <= 0 {
		return nil, fmt.Errorf("leaderboard size must be positive, got %d", size)
	}
	pool := goredis.NewPool(client)
	return &RedisLeaderboard{
		client: client,
		locker: redsync.New(pool),
		prefix: prefix,
		size:   size,
	}, nil
}

func (l *RedisLeaderboard) rankKey(algorithm string) string {
	return l.prefix + ":leaderboard:" + algorithm
}

func (l *RedisLeaderboard) detailKey(algorithm string) string {
	return l.rankKey(algorithm) + ":standings"
}

// Score orders standings: fewer ticks win, ties go to fewer expansions.
func Score(ticks, expansions int) float64 {
	return float64(ticks) + float64(expansions)/expansionScale
}

// Submit adds a successful episode and drops whatever falls off the board.
func (l *RedisLeaderboard) Submit(ctx context.Context, rec sim.EpisodeRecord) error {
	if !rec.Success {
		return nil
	}

	standing := dmn.Standing{
		EpisodeID:  rec.EpisodeID,
		Algorithm:  rec.Algorithm,
		Seed:       rec.Seed,
		Ticks:      rec.Ticks,
		Expansions: rec.Expansions,
		Score:      Score(rec.Ticks, rec.Expansions),
	}
	payload, err := json.Marshal(standing)
	if err != nil {
		return err
	}

	key, details := l.rankKey(rec.Algorithm), l.detailKey(rec.Algorithm)
	member := rec.EpisodeID.String()

	mutex := l.locker.NewMutex(key + ":trim_lock")
	if err := mutex.LockContext(ctx); err != nil {
		return err
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	if err := l.client.HSet(ctx, details, member, payload).Err(); err != nil {
		return err
	}
	if err := l.client.ZAdd(ctx, key, redis.Z{Score: standing.Score, Member: member}).Err(); err != nil {
		return err
	}

	dropped, err := l.client.ZRange(ctx, key, l.size, -1).Result()
	if err != nil {
		return err
	}
	if len(dropped) == 0 {
		return nil
	}
	if err := l.client.ZRemRangeByRank(ctx, key, l.size, -1).Err(); err != nil {
		return err
	}
	return l.client.HDel(ctx, details, dropped...).Err()
}

// Top returns up to n best standings of algorithm.
func (l *RedisLeaderboard) Top(ctx context.Context, algorithm string, n int64) ([]dmn.Standing, error) {
	if n <= 0 || n > l.size {
		n = l.size
	}
	members, err := l.client.ZRange(ctx, l.rankKey(algorithm), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []dmn.Standing{}, nil
	}

	payloads, err := l.client.HMGet(ctx, l.detailKey(algorithm), members...).Result()
	if err != nil {
		return nil, err
	}
	standings := make([]dmn.Standing, 0, len(payloads))
	for idx, p := range payloads {
		raw, ok := p.(string)
		if !ok {
			return nil, fmt.Errorf("standing %s is missing", members[idx])
		}
		var s dmn.Standing
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decoding standing %s: %w", members[idx], err)
		}
		standings = append(standings, s)
	}
	return standings, nil
}

// Count returns the number of standings kept for algorithm.
func (l *RedisLeaderboard) Count(ctx context.Context, algorithm string) int64 {
	return l.client.ZCard(ctx, l.rankKey(algorithm)).Val()
}
