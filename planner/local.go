package planner

import (
	"math"
	"math/rand"

	"github.com/beka-birhanu/ohrace/world"
)

// climber scores states by their heuristic distance to the goal.
type climber struct {
	w          *world.World
	goal       world.Pos
	p          Params
	expansions int
}

func (c *climber) distance(pos world.Pos) float64 {
	return c.p.Heuristic.distance(pos, c.goal, 1)
}

// steepest returns the first neighbor with the strictly smallest distance
// below cur's own, scoring each neighbor once.
func (c *climber) steepest(cur world.Pos) (world.Pos, bool) {
	best, bestD := cur, c.distance(cur)
	for _, n := range c.w.Neighbors(cur) {
		c.expansions++
		if d := c.distance(n); d < bestD {
			best, bestD = n, d
		}
	}
	return best, best != cur
}

// anyImproving picks uniformly among the neighbors closer to the goal than cur.
func (c *climber) anyImproving(cur world.Pos, rng *rand.Rand) (world.Pos, bool) {
	d := c.distance(cur)
	var better []world.Pos
	for _, n := range c.w.Neighbors(cur) {
		c.expansions++
		if c.distance(n) < d {
			better = append(better, n)
		}
	}
	if len(better) == 0 {
		return cur, false
	}
	return better[rng.Intn(len(better))], true
}

// climb follows next until the goal, a local optimum or the iteration bound.
func (c *climber) climb(start world.Pos, next func(world.Pos) (world.Pos, bool)) []world.Pos {
	path := []world.Pos{start}
	cur := start
	for i := 0; i < c.p.MaxIterations && cur != c.goal; i++ {
		n, ok := next(cur)
		if !ok {
			break
		}
		cur = n
		path = append(path, cur)
	}
	return path
}

func hillClimb(w *world.World, start, goal world.Pos, p Params, _ *rand.Rand) ([]world.Pos, int, bool) {
	c := &climber{w: w, goal: goal, p: p}
	path := c.climb(start, c.steepest)
	return path, c.expansions, path[len(path)-1] == goal
}

// randomRestart keeps the best of a plain hill climb from start and p.Restarts
// stochastic climbs, each launched after a random walk of up to p.RestartWalk
// moves away from start. A candidate replaces the best only when its end is
// strictly closer to the goal, or equally close over a shorter path.
func randomRestart(w *world.World, start, goal world.Pos, p Params, rng *rand.Rand) ([]world.Pos, int, bool) {
	c := &climber{w: w, goal: goal, p: p}
	best := c.climb(start, c.steepest)

	better := func(a, b []world.Pos) bool {
		da, db := c.distance(a[len(a)-1]), c.distance(b[len(b)-1])
		if da != db {
			return da < db
		}
		return len(a) < len(b)
	}

	for r := 0; r < p.Restarts; r++ {
		prefix := c.randomWalk(start, 1+rng.Intn(p.RestartWalk), rng)
		tail := c.climb(prefix[len(prefix)-1], func(cur world.Pos) (world.Pos, bool) {
			return c.anyImproving(cur, rng)
		})
		candidate := append(prefix, tail[1:]...)
		if better(candidate, best) {
			best = candidate
		}
	}
	return best, c.expansions, best[len(best)-1] == goal
}

// randomWalk moves up to steps times, avoiding an immediate step back when
// another option exists. It stops early on the goal.
func (c *climber) randomWalk(start world.Pos, steps int, rng *rand.Rand) []world.Pos {
	path := []world.Pos{start}
	for i := 0; i < steps && path[len(path)-1] != c.goal; i++ {
		cur := path[len(path)-1]
		nbrs := c.w.Neighbors(cur)
		c.expansions += len(nbrs)
		if len(nbrs) == 0 {
			break
		}
		options := withoutBacktrack(nbrs, path)
		path = append(path, options[rng.Intn(len(options))])
	}
	return path
}

func withoutBacktrack(nbrs, path []world.Pos) []world.Pos {
	if len(path) < 2 {
		return nbrs
	}
	prev := path[len(path)-2]
	out := make([]world.Pos, 0, len(nbrs))
	for _, n := range nbrs {
		if n != prev {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nbrs
	}
	return out
}

// anneal accepts worse moves with probability exp(-delta/T). Once the
// temperature falls to the floor it keeps going as a steepest hill climb.
func anneal(w *world.World, start, goal world.Pos, p Params, rng *rand.Rand) ([]world.Pos, int, bool) {
	c := &climber{w: w, goal: goal, p: p}
	path := []world.Pos{start}
	cur := start
	t := p.InitialTemperature
	stagnation := 0
	visits := make(map[world.Pos]int)
	var recent []world.Pos

	for i := 0; i < p.MaxIterations && cur != goal; i++ {
		if t <= minTemperature {
			n, ok := c.steepest(cur)
			if !ok {
				break
			}
			cur = n
			path = append(path, cur)
			continue
		}

		nbrs := w.Neighbors(cur)
		if len(nbrs) == 0 {
			break
		}
		options := withoutBacktrack(nbrs, path)
		next := options[rng.Intn(len(options))]
		if contains(recent, next) {
			var alt []world.Pos
			for _, o := range options {
				if !contains(recent, o) {
					alt = append(alt, o)
				}
			}
			if len(alt) > 0 {
				next = alt[rng.Intn(len(alt))]
			}
		}
		recent = append(recent, next)
		if len(recent) > oscillationMemory {
			recent = recent[1:]
		}

		c.expansions++
		delta := c.distance(next) - c.distance(cur)
		if delta <= 0 || rng.Float64() < math.Exp(-delta/t) {
			if delta == 0 {
				stagnation++
			} else {
				stagnation = 0
			}
			visits[cur]++
			cur = next
			path = append(path, cur)
			if visits[cur] > revisitLimit || stagnation >= p.StagnationLimit {
				break
			}
		}

		t = cool(t, p, stagnation)
	}
	return path, c.expansions, cur == goal
}

func cool(t float64, p Params, stagnation int) float64 {
	switch p.Cooling {
	case Linear:
		return math.Max(minTemperature, t-p.InitialTemperature/float64(p.MaxIterations))
	case Adaptive:
		return math.Max(minTemperature, t*math.Pow(p.CoolingRate, 1+float64(stagnation)/50))
	default:
		return t * p.CoolingRate
	}
}

func contains(ps []world.Pos, p world.Pos) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
