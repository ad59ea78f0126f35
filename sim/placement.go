package sim

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/beka-birhanu/ohrace/world"
)

var ErrNotEnoughRoom = errors.New("not enough free cells to place agents")

// Place puts the agents of lineup on a generated campus. The first agent takes
// the anchor start, the rest are drawn from free cells of the same building
// that can reach the office. Every agent heads for the office.
func Place(w *world.World, pl world.Placement, lineup []AgentSpec, rng *rand.Rand) ([]AgentSpec, error) {
	if len(lineup) == 0 {
		return nil, ErrNoAgents
	}
	anchor, ok := w.Cell(pl.Start)
	if !ok {
		return nil, fmt.Errorf("%w: anchor %s", world.ErrOutOfBounds, pl.Start)
	}

	candidates := w.Cells(func(c world.Cell) bool {
		return c.Walkable &&
			c.Kind == world.KindEmpty &&
			c.Building == anchor.Building &&
			c.Pos != pl.Start &&
			w.IsGoalReachable(c.Pos, pl.Office)
	})
	if len(candidates) < len(lineup)-1 {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughRoom, len(lineup)-1, len(candidates))
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	out := make([]AgentSpec, len(lineup))
	for i, spec := range lineup {
		spec.Start = pl.Start
		if i > 0 {
			spec.Start = candidates[i-1]
		}
		spec.Goal = pl.Office
		out[i] = spec
	}
	return out, nil
}
