package planner

import (
	"math/rand"

	"github.com/beka-birhanu/ohrace/world"
)

func breadthFirst(w *world.World, start, goal world.Pos, _ Params, _ *rand.Rand) ([]world.Pos, int, bool) {
	parent := map[world.Pos]world.Pos{start: start}
	queue := []world.Pos{start}
	expansions := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		expansions++
		if cur == goal {
			return reconstruct(parent, start, goal), expansions, true
		}
		for _, n := range w.Neighbors(cur) {
			if _, seen := parent[n]; !seen {
				parent[n] = cur
				queue = append(queue, n)
			}
		}
	}
	return nil, expansions, false
}

func depthFirst(w *world.World, start, goal world.Pos, _ Params, _ *rand.Rand) ([]world.Pos, int, bool) {
	type entry struct {
		pos, from world.Pos
	}
	parent := make(map[world.Pos]world.Pos)
	stack := []entry{{pos: start, from: start}}
	expansions := 0

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := parent[e.pos]; done {
			continue
		}
		parent[e.pos] = e.from
		expansions++
		if e.pos == goal {
			return reconstruct(parent, start, goal), expansions, true
		}

		// Pushed in reverse so the first neighbor is explored first.
		nbrs := w.Neighbors(e.pos)
		for i := len(nbrs) - 1; i >= 0; i-- {
			if _, done := parent[nbrs[i]]; !done {
				stack = append(stack, entry{pos: nbrs[i], from: e.pos})
			}
		}
	}
	return nil, expansions, false
}

// scoring maps the path cost so far and the heuristic estimate to a frontier
// priority and a secondary key.
type scoring func(g, h float64, p Params) (priority, secondary float64)

func uniformCost(g, _ float64, _ Params) (float64, float64) { return g, 0 }

func greedy(_, h float64, _ Params) (float64, float64) { return h, 0 }

// Ties on f prefer the deeper node.
func aStar(g, h float64, _ Params) (float64, float64) { return g + h, -g }

func weightedAStar(g, h float64, p Params) (float64, float64) { return g + p.Weight*h, -g }

// bestFirst is the graph search shared by UCS, Greedy, A* and Weighted A*.
// Closed states are never reopened; stale frontier entries are dropped
// without counting as expansions.
func bestFirst(score scoring) strategy {
	return func(w *world.World, start, goal world.Pos, p Params, _ *rand.Rand) ([]world.Pos, int, bool) {
		h := func(pos world.Pos) float64 { return p.Heuristic.distance(pos, goal, w.MinCost()) }

		g := map[world.Pos]float64{start: 0}
		parent := map[world.Pos]world.Pos{start: start}
		closed := make(map[world.Pos]bool)
		open := newFrontier()
		priority, secondary := score(0, h(start), p)
		open.push(start, 0, priority, secondary)
		expansions := 0

		for open.Len() > 0 {
			it := open.pop()
			if closed[it.pos] || it.g > g[it.pos] {
				continue
			}
			closed[it.pos] = true
			expansions++
			if it.pos == goal {
				return reconstruct(parent, start, goal), expansions, true
			}

			for _, n := range w.Neighbors(it.pos) {
				if closed[n] {
					continue
				}
				ng := it.g + w.Cost(it.pos, n)
				if old, seen := g[n]; seen && ng >= old {
					continue
				}
				g[n] = ng
				parent[n] = it.pos
				priority, secondary := score(ng, h(n), p)
				open.push(n, ng, priority, secondary)
			}
		}
		return nil, expansions, false
	}
}
