package plan

import (
	"encoding/json"

	"github.com/beka-birhanu/ohrace/world"
)

// PlanRequest asks for one path, on a given layout or on a generated campus.
type PlanRequest struct {
	Algorithm    string             `json:"algorithm" binding:"required"`
	Params       json.RawMessage    `json:"params"` // decoded over the default params
	Layout       []string           `json:"layout"`
	Connectivity int                `json:"connectivity" binding:"omitempty,oneof=4 8"`
	Campus       *world.BuildConfig `json:"campus"`
	Seed         int64              `json:"seed"`
	Start        *world.Pos         `json:"start"`
	Goal         *world.Pos         `json:"goal"`
}

type PlanResponse struct {
	Algorithm  string      `json:"algorithm"`
	Success    bool        `json:"success"`
	Path       []world.Pos `json:"path"`
	Moves      int         `json:"moves"`
	Cost       float64     `json:"cost"`
	Expansions int         `json:"expansions"`
	RuntimeMS  float64     `json:"runtime_ms"`
	Start      world.Pos   `json:"start"`
	Goal       world.Pos   `json:"goal"`
	World      string      `json:"world"`
}

type AlgorithmsResponse struct {
	Algorithms []string `json:"algorithms"`
}
