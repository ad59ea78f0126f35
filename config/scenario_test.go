package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	t.Run("empty document keeps the defaults", func(t *testing.T) {
		s, err := ParseScenario([]byte("{}"))
		require.NoError(t, err)
		assert.Equal(t, DefaultScenario(), s)
		assert.Len(t, s.Algorithms, len(planner.All()))
	})

	t.Run("overrides and per entrant defaults", func(t *testing.T) {
		doc := `
name: swap-test
seed: 42
episodes: 5
agents: 3
mixed: true
world:
  main_width: 12
  walls_main: 3
  connectivity: 8
rules:
  max_ticks: 120
  tie_break: highest
  replan_after: 4
algorithms:
  - algorithm: astar
    params:
      heuristic: euclidean
  - algorithm: sa
    params:
      cooling: linear
      initial_temperature: 30
`
		s, err := ParseScenario([]byte(doc))
		require.NoError(t, err)

		assert.Equal(t, "swap-test", s.Name)
		assert.Equal(t, int64(42), s.Seed)
		assert.Equal(t, 5, s.Episodes)
		assert.Equal(t, 3, s.Agents)
		assert.True(t, s.Mixed)
		assert.Equal(t, 12, s.World.MainWidth)
		assert.Equal(t, world.DefaultBuildConfig().PABWidth, s.World.PABWidth)
		assert.Equal(t, world.Eight, s.World.Connectivity)
		assert.Equal(t, 120, s.Rules.MaxTicks)
		assert.Equal(t, sim.HighestIDWins, s.Rules.TieBreak)
		assert.Equal(t, 4, s.Rules.ReplanAfter)
		assert.Equal(t, sim.DefaultConfig().StartPoints, s.Rules.StartPoints)

		require.Len(t, s.Algorithms, 2)
		assert.Equal(t, planner.AStar, s.Algorithms[0].Algorithm)
		assert.Equal(t, planner.Euclidean, s.Algorithms[0].Params.Heuristic)
		assert.Equal(t, planner.DefaultParams().Weight, s.Algorithms[0].Params.Weight)
		assert.Equal(t, planner.SimulatedAnnealing, s.Algorithms[1].Algorithm)
		assert.Equal(t, planner.Linear, s.Algorithms[1].Params.Cooling)
		assert.Equal(t, 30.0, s.Algorithms[1].Params.InitialTemperature)
		assert.Equal(t, planner.DefaultParams().Restarts, s.Algorithms[1].Params.Restarts)

		specs := s.Entrants()
		require.Len(t, specs, 2)
		assert.Equal(t, planner.AStar, specs[0].Algorithm)
	})

	t.Run("invalid documents", func(t *testing.T) {
		cases := map[string]string{
			"unknown algorithm": "algorithms: [{algorithm: teleport}]",
			"no episodes":       "episodes: 0",
			"too many agents":   "agents: 100",
			"narrow campus":     "world: {main_width: 3}",
			"negative ticks":    "rules: {max_ticks: -1}",
			"bad weight":        "algorithms: [{algorithm: wastar, params: {weight: 0.5}}]",
			"empty lineup":      "algorithms: []",
			"not yaml":          "episodes: [",
		}
		for name, doc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseScenario([]byte(doc))
				assert.ErrorIs(t, err, ErrInvalidScenario)
			})
		}
	})
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("episodes: 2\nalgorithms: [{algorithm: bfs}]\n"), 0o600))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Episodes)
	assert.Equal(t, planner.BFS, s.Algorithms[0].Algorithm)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
