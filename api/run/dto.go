package run

import (
	"encoding/json"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
)

type EntrantRequest struct {
	Algorithm string          `json:"algorithm" binding:"required"`
	Params    json.RawMessage `json:"params"` // decoded over the default params
}

// RunRequest submits a batch. Unset world and rules fall back to the defaults.
type RunRequest struct {
	Name       string             `json:"name"`
	Seed       int64              `json:"seed"`
	Episodes   int                `json:"episodes" binding:"required,min=1"`
	Agents     int                `json:"agents" binding:"omitempty,min=1"`
	Mixed      bool               `json:"mixed"`
	World      *world.BuildConfig `json:"world"`
	Rules      *sim.Config        `json:"rules"`
	Algorithms []EntrantRequest   `json:"algorithms" binding:"required,min=1,dive"`
}

type SubmitResponse struct {
	ID string `json:"id"`
}
