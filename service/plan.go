package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/world"
)

// MaxLayoutSide bounds the rows and columns of a queried layout.
const MaxLayoutSide = 200

// PathPlanner answers one-off planning queries.
type PathPlanner struct {
	logger i.Logger
}

func NewPathPlanner(logger i.Logger) (*PathPlanner, error) {
	if logger == nil {
		return nil, errors.New("path planner needs a logger")
	}
	return &PathPlanner{logger: logger}, nil
}

// Plan builds the queried world and runs one planner on it.
func (p *PathPlanner) Plan(ctx context.Context, q dmn.PlanQuery) (*dmn.PlanAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !q.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %v", dmn.ErrInvalidRequest, planner.ErrUnknownAlgorithm)
	}

	rng := rand.New(rand.NewSource(q.Seed))
	w, start, goal, err := queryWorld(q, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dmn.ErrInvalidRequest, err)
	}
	if q.Start != nil {
		start = *q.Start
	}
	if q.Goal != nil {
		goal = *q.Goal
	}
	if !w.InBound(start) || !w.InBound(goal) {
		return nil, fmt.Errorf("%w: %v", dmn.ErrInvalidRequest, world.ErrOutOfBounds)
	}

	res, err := planner.Plan(w, planner.Request{Start: start, Goal: goal, Algorithm: q.Algorithm, Params: q.Params}, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dmn.ErrInvalidRequest, err)
	}
	p.logger.Info(fmt.Sprintf("%s %s -> %s: success=%t moves=%d expansions=%d", q.Algorithm, start, goal, res.Success, res.Moves(), res.Expansions))
	return &dmn.PlanAnswer{Result: res, Start: start, Goal: goal, World: w.String()}, nil
}

// queryWorld parses the layout when there is one and generates a campus otherwise.
func queryWorld(q dmn.PlanQuery, rng *rand.Rand) (*world.World, world.Pos, world.Pos, error) {
	if len(q.Layout) > 0 {
		if q.Start == nil || q.Goal == nil {
			return nil, world.Pos{}, world.Pos{}, errors.New("a layout needs explicit start and goal")
		}
		if err := checkLayoutSize(q.Layout); err != nil {
			return nil, world.Pos{}, world.Pos{}, err
		}
		conn := q.Connectivity
		if conn == 0 {
			conn = world.Four
		}
		w, err := world.Parse(strings.Join(q.Layout, "\n"), conn)
		return w, world.Pos{}, world.Pos{}, err
	}

	cfg := q.Campus
	if cfg == (world.BuildConfig{}) {
		cfg = world.DefaultBuildConfig()
	}
	if q.Connectivity != 0 {
		cfg.Connectivity = q.Connectivity
	}
	if err := cfg.Validate(); err != nil {
		return nil, world.Pos{}, world.Pos{}, err
	}
	w, pl, err := world.Build(cfg, rng)
	if err != nil {
		return nil, world.Pos{}, world.Pos{}, err
	}
	return w, pl.Start, pl.Office, nil
}

func checkLayoutSize(layout []string) error {
	if len(layout) > MaxLayoutSide {
		return fmt.Errorf("layout has %d rows, at most %d allowed", len(layout), MaxLayoutSide)
	}
	for r, line := range layout {
		if n := len(strings.ReplaceAll(strings.TrimSpace(line), " ", "")); n > MaxLayoutSide {
			return fmt.Errorf("layout row %d has %d columns, at most %d allowed", r, n, MaxLayoutSide)
		}
	}
	return nil
}
