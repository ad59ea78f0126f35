package domain

import (
	"time"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/google/uuid"
)

// BatchRequest asks for Episodes seeded episodes per lineup. Episode k of
// every lineup uses seed Seed+k, so all lineups race on the same campuses.
type BatchRequest struct {
	Name     string            `json:"name"`
	Seed     int64             `json:"seed"`
	Episodes int               `json:"episodes"`
	Agents   int               `json:"agents"`
	Mixed    bool              `json:"mixed"`
	World    world.BuildConfig `json:"world"`
	Rules    sim.Config        `json:"rules"`
	Entrants []sim.AgentSpec   `json:"entrants"`
}

// LineupSummary aggregates the episodes of one lineup.
type LineupSummary struct {
	Algorithm      string        `json:"algorithm"`
	Episodes       int           `json:"episodes"`
	Successes      int           `json:"successes"`
	Failures       int           `json:"failures"`
	Timeouts       int           `json:"timeouts"`
	SuccessRate    float64       `json:"success_rate"`
	MeanTicks      float64       `json:"mean_ticks"`
	MeanExpansions float64       `json:"mean_expansions"`
	MeanCollisions float64       `json:"mean_collisions"`
	MeanPathLength float64       `json:"mean_path_length"`
	MeanPoints     float64       `json:"mean_points"`
	MeanRuntime    time.Duration `json:"mean_runtime"`
}

// BatchSummary is the outcome of a batch. Episodes are ordered by lineup,
// then episode index.
type BatchSummary struct {
	Name     string              `json:"name"`
	Seed     int64               `json:"seed"`
	Lineups  []LineupSummary     `json:"lineups"`
	Episodes []sim.EpisodeRecord `json:"episodes,omitempty"`
	Elapsed  time.Duration       `json:"elapsed"`
}

type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// RunInfo tracks a batch submitted for background execution.
type RunInfo struct {
	ID          uuid.UUID     `json:"id"`
	Owner       string        `json:"owner,omitempty"`
	Status      RunStatus     `json:"status"`
	SubmittedAt time.Time     `json:"submitted_at"`
	FinishedAt  time.Time     `json:"finished_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	Summary     *BatchSummary `json:"summary,omitempty"`
}

// Standing is a leaderboard entry. Lower scores rank higher.
type Standing struct {
	EpisodeID  uuid.UUID `json:"episode_id"`
	Algorithm  string    `json:"algorithm"`
	Seed       int64     `json:"seed"`
	Ticks      int       `json:"ticks"`
	Expansions int       `json:"expansions"`
	Score      float64   `json:"score"`
}
