package sortedstorage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLeaderboard(t *testing.T, size int64) (*RedisLeaderboard, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lb, err := NewRedisLeaderboard(client, "ohrace", size)
	require.NoError(t, err)
	return lb, mr
}

func episode(algorithm string, ticks, expansions int, success bool) sim.EpisodeRecord {
	return sim.EpisodeRecord{
		EpisodeID:  uuid.New(),
		Algorithm:  algorithm,
		Ticks:      ticks,
		Expansions: expansions,
		Success:    success,
	}
}

func TestRedisLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks by ticks then expansions", func(t *testing.T) {
		lb, _ := setupLeaderboard(t, 10)
		slow := episode("astar", 20, 10, true)
		fast := episode("astar", 12, 90, true)
		fastLean := episode("astar", 12, 30, true)
		for _, rec := range []sim.EpisodeRecord{slow, fast, fastLean} {
			require.NoError(t, lb.Submit(ctx, rec))
		}

		top, err := lb.Top(ctx, "astar", 10)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, fastLean.EpisodeID, top[0].EpisodeID)
		assert.Equal(t, fast.EpisodeID, top[1].EpisodeID)
		assert.Equal(t, slow.EpisodeID, top[2].EpisodeID)
		assert.Equal(t, 12, top[0].Ticks)
		assert.Equal(t, 30, top[0].Expansions)
		assert.Equal(t, Score(12, 30), top[0].Score)
	})

	t.Run("failed episodes are ignored", func(t *testing.T) {
		lb, _ := setupLeaderboard(t, 10)
		require.NoError(t, lb.Submit(ctx, episode("bfs", 5, 5, false)))
		assert.Equal(t, int64(0), lb.Count(ctx, "bfs"))

		top, err := lb.Top(ctx, "bfs", 3)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	t.Run("board is trimmed to size", func(t *testing.T) {
		lb, mr := setupLeaderboard(t, 2)
		worst := episode("ucs", 30, 0, true)
		require.NoError(t, lb.Submit(ctx, worst))
		require.NoError(t, lb.Submit(ctx, episode("ucs", 10, 0, true)))
		require.NoError(t, lb.Submit(ctx, episode("ucs", 20, 0, true)))

		assert.Equal(t, int64(2), lb.Count(ctx, "ucs"))
		assert.Empty(t, mr.HGet("ohrace:leaderboard:ucs:standings", worst.EpisodeID.String()))

		top, err := lb.Top(ctx, "ucs", 0)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, 10, top[0].Ticks)
		assert.Equal(t, 20, top[1].Ticks)
	})

	t.Run("algorithms are kept apart", func(t *testing.T) {
		lb, _ := setupLeaderboard(t, 5)
		require.NoError(t, lb.Submit(ctx, episode("greedy", 9, 9, true)))
		require.NoError(t, lb.Submit(ctx, episode("dfs", 9, 9, true)))

		assert.Equal(t, int64(1), lb.Count(ctx, "greedy"))
		assert.Equal(t, int64(1), lb.Count(ctx, "dfs"))
	})

	t.Run("invalid construction", func(t *testing.T) {
		_, err := NewRedisLeaderboard(nil, "ohrace", 3)
		assert.Error(t, err)

		mr := miniredis.RunT(t)
		_, err = NewRedisLeaderboard(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ohrace", 0)
		assert.Error(t, err)
	})
}
