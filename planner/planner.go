// Package planner finds paths on a world with one of nine search strategies.
//
// Exhaustive strategies (BFS, DFS, UCS, Greedy, A*, Weighted A*) keep a
// visited set and either return a complete path or fail with an empty one.
// Local strategies (hill climbing, simulated annealing, random restarts) are
// bounded by an iteration limit and return their best partial path on failure.
//
// Every strategy counts one expansion per candidate state it evaluates: a
// state taken off the frontier for the exhaustive family, a neighbor scored
// for the local family.
package planner

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/beka-birhanu/ohrace/world"
)

// Request asks for a path from Start to Goal.
type Request struct {
	Start     world.Pos `json:"start"`
	Goal      world.Pos `json:"goal"`
	Algorithm Algorithm `json:"algorithm"`
	Params    Params    `json:"params"`
}

// Result is the immutable outcome of one planning call.
type Result struct {
	Algorithm  Algorithm     `json:"algorithm"`
	Path       []world.Pos   `json:"path"`
	Expansions int           `json:"expansions"`
	Runtime    time.Duration `json:"runtime"`
	Success    bool          `json:"success"`
	Cost       float64       `json:"cost"`
}

// Moves is the number of transitions along the path.
func (r Result) Moves() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// Planner computes paths with a fixed algorithm and tuning.
type Planner interface {
	Algorithm() Algorithm
	Plan(w *world.World, start, goal world.Pos, rng *rand.Rand) Result
}

// strategy runs a search and reports the path, the expansion count and
// whether the goal was reached.
type strategy func(w *world.World, start, goal world.Pos, p Params, rng *rand.Rand) ([]world.Pos, int, bool)

var strategies = map[Algorithm]strategy{
	BFS:                breadthFirst,
	DFS:                depthFirst,
	UCS:                bestFirst(uniformCost),
	Greedy:             bestFirst(greedy),
	AStar:              bestFirst(aStar),
	WeightedAStar:      bestFirst(weightedAStar),
	HillClimbing:       hillClimb,
	SimulatedAnnealing: anneal,
	RandomRestart:      randomRestart,
}

type planner struct {
	algorithm Algorithm
	params    Params
	run       strategy
}

// New returns the planner for algorithm a.
func New(a Algorithm, p Params) (Planner, error) {
	run, ok := strategies[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &planner{algorithm: a, params: p.withDefaults(a), run: run}, nil
}

func (p *planner) Algorithm() Algorithm { return p.algorithm }

// Plan never mutates w. Endpoints that are off the grid or blocked yield an
// unsuccessful result with an empty path.
func (p *planner) Plan(w *world.World, start, goal world.Pos, rng *rand.Rand) Result {
	began := time.Now()
	res := Result{Algorithm: p.algorithm}
	if !w.Walkable(start) || !w.Walkable(goal) {
		res.Runtime = time.Since(began)
		return res
	}

	params := p.params
	params.Heuristic = params.Heuristic.resolve(w.Connectivity())
	path, expansions, ok := p.run(w, start, goal, params, rng)
	res.Runtime = time.Since(began)
	res.Path = path
	res.Expansions = expansions
	res.Success = ok
	res.Cost = w.PathCost(path)
	return res
}

// Plan runs a single request with a fresh planner.
func Plan(w *world.World, req Request, rng *rand.Rand) (Result, error) {
	p, err := New(req.Algorithm, req.Params)
	if err != nil {
		return Result{}, err
	}
	return p.Plan(w, req.Start, req.Goal, rng), nil
}

// reconstruct walks parent links back from goal.
func reconstruct(parent map[world.Pos]world.Pos, start, goal world.Pos) []world.Pos {
	path := []world.Pos{goal}
	for cur := goal; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
