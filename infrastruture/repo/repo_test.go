package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func sampleEpisode(algorithm string, startedAt time.Time) sim.EpisodeRecord {
	return sim.EpisodeRecord{
		EpisodeID:   uuid.New(),
		Seed:        7,
		Algorithm:   algorithm,
		Outcome:     sim.StateSuccess,
		Ticks:       12,
		Expansions:  40,
		Runtime:     3 * time.Millisecond,
		Collisions:  1,
		Success:     true,
		PathLengths: []int{11},
		StartedAt:   startedAt,
		Agents: []sim.AgentSummary{{
			AgentID:      0,
			Algorithm:    algorithm,
			Start:        world.Pos{Row: 3, Col: 0},
			Goal:         world.Pos{Row: 4, Col: 15},
			Final:        world.Pos{Row: 4, Col: 15},
			Status:       sim.StatusArrived,
			Reason:       sim.ReasonGoal,
			Steps:        12,
			PathLength:   11,
			Expansions:   40,
			PlanningTime: time.Millisecond,
			Collisions:   1,
			Points:       988,
			Planned:      true,
		}},
	}
}

func exerciseRepo(t *testing.T, r i.EpisodeRepo) {
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		rec := sampleEpisode("astar", epoch)
		require.NoError(t, r.Save(ctx, rec))

		got, err := r.ByID(ctx, rec.EpisodeID)
		require.NoError(t, err)
		assert.Equal(t, rec, *got)
	})

	t.Run("save replaces", func(t *testing.T) {
		rec := sampleEpisode("bfs", epoch)
		require.NoError(t, r.Save(ctx, rec))
		rec.Outcome = sim.StateTimeout
		rec.Success = false
		require.NoError(t, r.Save(ctx, rec))

		got, err := r.ByID(ctx, rec.EpisodeID)
		require.NoError(t, err)
		assert.Equal(t, sim.StateTimeout, got.Outcome)
		assert.False(t, got.Success)
	})

	t.Run("missing episode", func(t *testing.T) {
		_, err := r.ByID(ctx, uuid.New())
		assert.ErrorIs(t, err, dmn.ErrNotFound)
	})

	t.Run("by algorithm newest first", func(t *testing.T) {
		older := sampleEpisode("greedy", epoch)
		newer := sampleEpisode("greedy", epoch.Add(time.Hour))
		other := sampleEpisode("dfs", epoch.Add(2*time.Hour))
		for _, rec := range []sim.EpisodeRecord{older, newer, other} {
			require.NoError(t, r.Save(ctx, rec))
		}

		recs, err := r.ByAlgorithm(ctx, "greedy", 0)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, newer.EpisodeID, recs[0].EpisodeID)
		assert.Equal(t, older.EpisodeID, recs[1].EpisodeID)

		recs, err = r.ByAlgorithm(ctx, "greedy", 1)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, newer.EpisodeID, recs[0].EpisodeID)

		recs, err = r.ByAlgorithm(ctx, "hill", 5)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestMemoryEpisodeRepo(t *testing.T) {
	exerciseRepo(t, NewMemoryEpisodeRepo())
}

func TestSQLiteEpisodeRepo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "episodes.db")

	r, err := NewSQLiteEpisodeRepo(ctx, path)
	require.NoError(t, err)
	exerciseRepo(t, r)

	t.Run("survives reopening", func(t *testing.T) {
		rec := sampleEpisode("ucs", epoch)
		require.NoError(t, r.Save(ctx, rec))
		require.NoError(t, r.Close())

		reopened, err := NewSQLiteEpisodeRepo(ctx, path)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.ByID(ctx, rec.EpisodeID)
		require.NoError(t, err)
		assert.Equal(t, rec.Agents, got.Agents)
	})

	t.Run("closed repo", func(t *testing.T) {
		closed, err := NewSQLiteEpisodeRepo(ctx, filepath.Join(t.TempDir(), "closed.db"))
		require.NoError(t, err)
		require.NoError(t, closed.Close())
		assert.Error(t, closed.Save(ctx, sampleEpisode("bfs", epoch)))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteEpisodeRepo(ctx, "")
		assert.Error(t, err)
	})
}

func TestNewEpisodeRepo(t *testing.T) {
	ctx := context.Background()

	r, err := NewEpisodeRepo(ctx, Settings{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryEpisodeRepo{}, r)
	assert.NoError(t, CloseIfSupported(r))

	r, err = NewEpisodeRepo(ctx, Settings{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteEpisodeRepo{}, r)
	assert.NoError(t, CloseIfSupported(r))

	_, err = NewEpisodeRepo(ctx, Settings{Driver: "mongo"})
	assert.Error(t, err)

	_, err = NewEpisodeRepo(ctx, Settings{Driver: "cassandra"})
	assert.Error(t, err)
}
