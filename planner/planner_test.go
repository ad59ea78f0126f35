package planner

import (
	"math"
	"math/rand"
	"testing"

	"github.com/beka-birhanu/ohrace/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, layout string, conn world.Connectivity) *world.World {
	t.Helper()
	w, err := world.Parse(layout, conn)
	require.NoError(t, err)
	return w
}

func mustPlan(t *testing.T, w *world.World, a Algorithm, p Params, start, goal world.Pos, seed int64) Result {
	t.Helper()
	res, err := Plan(w, Request{Start: start, Goal: goal, Algorithm: a, Params: p}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return res
}

func assertValidPath(t *testing.T, w *world.World, res Result, start world.Pos) {
	t.Helper()
	if len(res.Path) == 0 {
		return
	}
	assert.Equal(t, start, res.Path[0], "%s path must begin at start", res.Algorithm)
	for i, p := range res.Path {
		assert.True(t, w.Walkable(p), "%s path visits blocked cell %s", res.Algorithm, p)
		if i > 0 {
			assert.True(t, w.Adjacent(res.Path[i-1], p), "%s jumps from %s to %s", res.Algorithm, res.Path[i-1], p)
		}
	}
}

func campusWorlds(t *testing.T, n int) ([]*world.World, []world.Placement) {
	t.Helper()
	var worlds []*world.World
	var placements []world.Placement
	for seed := int64(0); seed < int64(n); seed++ {
		w, pl, err := world.Build(world.DefaultBuildConfig(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		worlds = append(worlds, w)
		placements = append(placements, pl)
	}
	return worlds, placements
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range All() {
		parsed, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	a, err := ParseAlgorithm(" A* ")
	require.NoError(t, err)
	assert.Equal(t, AStar, a)

	_, err = ParseAlgorithm("dijkstra-ish")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	var unmarshalled Algorithm
	require.NoError(t, unmarshalled.UnmarshalText([]byte("shc")))
	assert.Equal(t, RandomRestart, unmarshalled)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(Algorithm(42), DefaultParams())
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	p := DefaultParams()
	p.Weight = 0.5
	_, err = New(WeightedAStar, p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = DefaultParams()
	p.CoolingRate = 1.5
	_, err = New(SimulatedAnnealing, p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	t.Run("work is bounded", func(t *testing.T) {
		cases := map[string]func(*Params){
			"restarts":       func(p *Params) { p.Restarts = 300000 },
			"iterations":     func(p *Params) { p.MaxIterations = maxIterationsLimit + 1 },
			"restart walk":   func(p *Params) { p.RestartWalk = maxRestartWalkLimit + 1 },
			"stagnation":     func(p *Params) { p.StagnationLimit = maxStagnationLimit + 1 },
			"temperature":    func(p *Params) { p.InitialTemperature = 1e9 },
			"weight":         func(p *Params) { p.Weight = 1000 },
			"heuristic code": func(p *Params) { p.Heuristic = Heuristic(9) },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				p := DefaultParams()
				mutate(&p)
				_, err := New(RandomRestart, p)
				assert.ErrorIs(t, err, ErrInvalidParams)
			})
		}

		p := DefaultParams()
		p.Restarts = maxRestartsLimit
		p.MaxIterations = maxIterationsLimit
		_, err := New(RandomRestart, p)
		assert.NoError(t, err)
	})
}

func TestAllAlgorithmsProduceValidPaths(t *testing.T) {
	worlds, placements := campusWorlds(t, 5)
	for i, w := range worlds {
		for _, a := range All() {
			res := mustPlan(t, w, a, DefaultParams(), placements[i].Start, placements[i].Office, int64(i))
			assert.Equal(t, a, res.Algorithm)
			assert.Positive(t, res.Expansions)
			assertValidPath(t, w, res, placements[i].Start)
			if !a.Local() {
				assert.True(t, res.Success, "%s should solve campus %d", a, i)
			}
			if res.Success {
				assert.Equal(t, placements[i].Office, res.Path[len(res.Path)-1])
			}
		}
	}
}

func TestOptimality(t *testing.T) {
	worlds, placements := campusWorlds(t, 10)
	for i, w := range worlds {
		start, goal := placements[i].Start, placements[i].Office
		bfs := mustPlan(t, w, BFS, DefaultParams(), start, goal, 0)
		ucs := mustPlan(t, w, UCS, DefaultParams(), start, goal, 0)
		astar := mustPlan(t, w, AStar, DefaultParams(), start, goal, 0)

		require.True(t, bfs.Success)
		assert.Equal(t, ucs.Moves(), bfs.Moves(), "bfs is optimal in length on uniform cost")
		assert.InDelta(t, ucs.Cost, astar.Cost, 1e-9, "admissible A* matches UCS")

		for _, weight := range []float64{1, 1.5, 2, 5} {
			p := DefaultParams()
			p.Weight = weight
			wa := mustPlan(t, w, WeightedAStar, p, start, goal, 0)
			require.True(t, wa.Success)
			assert.LessOrEqual(t, wa.Cost, weight*ucs.Cost+1e-9, "weight %v", weight)
		}
	}
}

func TestEightConnectivityWithEuclidean(t *testing.T) {
	w := mustParse(t, `
		.....
		.###.
		.....
		.....
	`, world.Eight)
	p := DefaultParams()
	p.Heuristic = Euclidean
	start, goal := world.Pos{Row: 3, Col: 0}, world.Pos{Row: 0, Col: 4}

	ucs := mustPlan(t, w, UCS, p, start, goal, 0)
	astar := mustPlan(t, w, AStar, p, start, goal, 0)
	require.True(t, ucs.Success)
	assert.InDelta(t, ucs.Cost, astar.Cost, 1e-9)
	assertValidPath(t, w, astar, start)
}

func TestDefaultHeuristicFollowsConnectivity(t *testing.T) {
	layout := `
		......
		......
		.####.
		......
		......
	`
	start, goal := world.Pos{Row: 0, Col: 0}, world.Pos{Row: 4, Col: 5}

	for _, conn := range []world.Connectivity{world.Four, world.Eight} {
		w := mustParse(t, layout, conn)
		ucs := mustPlan(t, w, UCS, DefaultParams(), start, goal, 0)
		astar := mustPlan(t, w, AStar, DefaultParams(), start, goal, 0)
		require.True(t, ucs.Success)
		require.True(t, astar.Success)
		assert.InDelta(t, ucs.Cost, astar.Cost, 1e-9, "connectivity %d", conn)
		assertValidPath(t, w, astar, start)
	}

	assert.Equal(t, Manhattan, AutoHeuristic.resolve(world.Four))
	assert.Equal(t, Octile, AutoHeuristic.resolve(world.Eight))
	assert.Equal(t, Euclidean, Euclidean.resolve(world.Eight))
}

func TestOctileDistance(t *testing.T) {
	a, b := world.Pos{Row: 0, Col: 0}, world.Pos{Row: 2, Col: 5}
	assert.InDelta(t, 3+2*math.Sqrt2, Octile.distance(a, b, 1), 1e-12)
	assert.InDelta(t, 2*(3+2*math.Sqrt2), Octile.distance(b, a, 2), 1e-12)
	assert.Equal(t, 7.0, Manhattan.distance(a, b, 1))
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams([]byte(`{"weight": 3, "heuristic": "euclidean"}`))
	require.NoError(t, err)
	want := DefaultParams()
	want.Weight = 3
	want.Heuristic = Euclidean
	assert.Equal(t, want, p)

	for _, empty := range []string{"", "null"} {
		p, err = ParseParams([]byte(empty))
		require.NoError(t, err)
		assert.Equal(t, DefaultParams(), p)
	}

	_, err = ParseParams([]byte(`{"restarts": 300000}`))
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = ParseParams([]byte(`{"weight": "heavy"}`))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestHeuristicText(t *testing.T) {
	for _, h := range []Heuristic{AutoHeuristic, Manhattan, Euclidean, Octile} {
		text, err := h.MarshalText()
		require.NoError(t, err)
		var back Heuristic
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, h, back)
	}
	var h Heuristic
	assert.ErrorIs(t, h.UnmarshalText([]byte("chebyshev")), ErrInvalidParams)
}

func TestStartEqualsGoal(t *testing.T) {
	w := mustParse(t, "...", world.Four)
	for _, a := range All() {
		res := mustPlan(t, w, a, DefaultParams(), world.Pos{Row: 0, Col: 1}, world.Pos{Row: 0, Col: 1}, 0)
		assert.True(t, res.Success, a.String())
		assert.Equal(t, []world.Pos{{Row: 0, Col: 1}}, res.Path, a.String())
		assert.Zero(t, res.Moves())
	}
}

func TestUnreachableGoal(t *testing.T) {
	w := mustParse(t, `
		..#..
		..#..
	`, world.Four)
	start, goal := world.Pos{Row: 0, Col: 0}, world.Pos{Row: 1, Col: 4}

	for _, a := range []Algorithm{BFS, DFS, UCS, Greedy, AStar, WeightedAStar} {
		res := mustPlan(t, w, a, DefaultParams(), start, goal, 0)
		assert.False(t, res.Success, a.String())
		assert.Empty(t, res.Path, a.String())
		assert.Equal(t, 4, res.Expansions, "%s explores the whole component", a)
	}
}

func TestBlockedEndpoints(t *testing.T) {
	w := mustParse(t, ".#.", world.Four)
	res := mustPlan(t, w, AStar, DefaultParams(), world.Pos{Row: 0, Col: 0}, world.Pos{Row: 0, Col: 1}, 0)
	assert.False(t, res.Success)
	assert.Empty(t, res.Path)
	assert.Zero(t, res.Expansions)
}

func TestTieBreaking(t *testing.T) {
	w := mustParse(t, `
		...
		...
		...
	`, world.Four)
	start, goal := world.Pos{Row: 0, Col: 0}, world.Pos{Row: 2, Col: 2}

	t.Run("bfs follows neighbor order", func(t *testing.T) {
		small := mustParse(t, `
			..
			..
		`, world.Four)
		res := mustPlan(t, small, BFS, DefaultParams(), start, world.Pos{Row: 1, Col: 1}, 0)
		assert.Equal(t, []world.Pos{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 1}}, res.Path)
		assert.Equal(t, 4, res.Expansions)
	})

	t.Run("astar prefers deeper nodes on equal f", func(t *testing.T) {
		res := mustPlan(t, w, AStar, DefaultParams(), start, goal, 0)
		assert.Equal(t, []world.Pos{
			{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 1, Col: 2}, {Row: 2, Col: 2},
		}, res.Path)
		assert.Equal(t, 5, res.Expansions)
	})

	t.Run("ucs expands every cheaper state first", func(t *testing.T) {
		res := mustPlan(t, w, UCS, DefaultParams(), start, goal, 0)
		assert.Equal(t, 9, res.Expansions)
		assert.Equal(t, 4, res.Moves())
	})

	t.Run("repeat calls are identical", func(t *testing.T) {
		for _, a := range All() {
			first := mustPlan(t, w, a, DefaultParams(), start, goal, 7)
			second := mustPlan(t, w, a, DefaultParams(), start, goal, 7)
			assert.Equal(t, first.Path, second.Path, a.String())
			assert.Equal(t, first.Expansions, second.Expansions, a.String())
		}
	})
}

func TestLocalSearch(t *testing.T) {
	// The wall sits between start and goal; every neighbor of the start is
	// farther from the goal, so a greedy climb is stuck immediately.
	trap := mustParse(t, `
		.#.
		...
	`, world.Four)
	start, goal := world.Pos{Row: 0, Col: 0}, world.Pos{Row: 0, Col: 2}

	t.Run("hill climbing returns its partial path", func(t *testing.T) {
		res := mustPlan(t, trap, HillClimbing, DefaultParams(), start, goal, 0)
		assert.False(t, res.Success)
		assert.Equal(t, []world.Pos{start}, res.Path)
		assert.Equal(t, 1, res.Expansions)
	})

	t.Run("exhaustive search still solves it", func(t *testing.T) {
		res := mustPlan(t, trap, AStar, DefaultParams(), start, goal, 0)
		assert.True(t, res.Success)
		assert.Equal(t, 4, res.Moves())
	})

	t.Run("random restart is never worse than one climb", func(t *testing.T) {
		worlds, placements := campusWorlds(t, 8)
		worlds = append(worlds, trap)
		placements = append(placements, world.Placement{Start: start, Office: goal})
		for i, w := range worlds {
			for seed := int64(0); seed < 5; seed++ {
				hc := mustPlan(t, w, HillClimbing, DefaultParams(), placements[i].Start, placements[i].Office, seed)
				rr := mustPlan(t, w, RandomRestart, DefaultParams(), placements[i].Start, placements[i].Office, seed)
				assertValidPath(t, w, rr, placements[i].Start)

				hcGap := Manhattan.distance(hc.Path[len(hc.Path)-1], placements[i].Office, 1)
				rrGap := Manhattan.distance(rr.Path[len(rr.Path)-1], placements[i].Office, 1)
				assert.LessOrEqual(t, rrGap, hcGap)
				assert.GreaterOrEqual(t, rr.Expansions, hc.Expansions)
			}
		}
	})

	t.Run("annealing at zero temperature climbs", func(t *testing.T) {
		worlds, placements := campusWorlds(t, 5)
		for i, w := range worlds {
			p := DefaultParams()
			p.InitialTemperature = 0
			sa := mustPlan(t, w, SimulatedAnnealing, p, placements[i].Start, placements[i].Office, 3)
			hc := mustPlan(t, w, HillClimbing, p, placements[i].Start, placements[i].Office, 3)
			assert.Equal(t, hc.Path, sa.Path)
			assert.Equal(t, hc.Success, sa.Success)
		}
	})

	t.Run("annealing is reproducible per seed", func(t *testing.T) {
		worlds, placements := campusWorlds(t, 3)
		for _, cooling := range []Cooling{Exponential, Linear, Adaptive} {
			p := DefaultParams()
			p.Cooling = cooling
			for i, w := range worlds {
				a := mustPlan(t, w, SimulatedAnnealing, p, placements[i].Start, placements[i].Office, 11)
				b := mustPlan(t, w, SimulatedAnnealing, p, placements[i].Start, placements[i].Office, 11)
				assert.Equal(t, a.Path, b.Path)
				assertValidPath(t, w, a, placements[i].Start)
			}
		}
	})

	t.Run("iteration bound caps the climb", func(t *testing.T) {
		line := mustParse(t, "..........", world.Four)
		p := DefaultParams()
		p.MaxIterations = 3
		res := mustPlan(t, line, HillClimbing, p, world.Pos{Row: 0, Col: 0}, world.Pos{Row: 0, Col: 9}, 0)
		assert.False(t, res.Success)
		assert.Equal(t, 3, res.Moves())
	})
}
