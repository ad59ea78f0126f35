package domain

import (
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/world"
)

// PlanQuery asks for a single path. The world is parsed from Layout when
// given, otherwise a campus is generated from Campus and Seed. Missing
// endpoints default to the campus start and office.
type PlanQuery struct {
	Layout       []string
	Connectivity world.Connectivity
	Campus       world.BuildConfig
	Seed         int64
	Start        *world.Pos
	Goal         *world.Pos
	Algorithm    planner.Algorithm
	Params       planner.Params
}

// PlanAnswer is the planner result together with the world it ran on.
type PlanAnswer struct {
	planner.Result
	Start world.Pos `json:"start"`
	Goal  world.Pos `json:"goal"`
	World string    `json:"world"`
}
