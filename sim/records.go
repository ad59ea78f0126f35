package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/beka-birhanu/ohrace/world"
	"github.com/google/uuid"
)

// AgentStep is one agent's state at the end of a tick.
type AgentStep struct {
	AgentID   int       `json:"agent_id" bson:"agentId"`
	Algorithm string    `json:"algorithm" bson:"algorithm"`
	Pos       world.Pos `json:"pos" bson:"pos"`
	Moved     bool      `json:"moved" bson:"moved"`
	Collided  bool      `json:"collided" bson:"collided"`
	Status    Status    `json:"status" bson:"status"`
	Points    int       `json:"points" bson:"points"`
	Reason    string    `json:"reason" bson:"reason"`
}

// StepRecord captures every agent after one synchronous tick.
type StepRecord struct {
	EpisodeID uuid.UUID   `json:"episode_id" bson:"episodeId"`
	Tick      int         `json:"tick" bson:"tick"`
	Agents    []AgentStep `json:"agents" bson:"agents"`
}

// AgentSummary is an agent's totals for a finished episode.
type AgentSummary struct {
	AgentID      int           `json:"agent_id" bson:"agentId"`
	Algorithm    string        `json:"algorithm" bson:"algorithm"`
	Start        world.Pos     `json:"start" bson:"start"`
	Goal         world.Pos     `json:"goal" bson:"goal"`
	Final        world.Pos     `json:"final" bson:"final"`
	Status       Status        `json:"status" bson:"status"`
	Reason       string        `json:"reason" bson:"reason"`
	Steps        int           `json:"steps" bson:"steps"`
	PathLength   int           `json:"path_length" bson:"pathLength"`
	Expansions   int           `json:"expansions" bson:"expansions"`
	PlanningTime time.Duration `json:"planning_time" bson:"planningTime"`
	Collisions   int           `json:"collisions" bson:"collisions"`
	Replans      int           `json:"replans" bson:"replans"`
	Points       int           `json:"points" bson:"points"`
	Planned      bool          `json:"planned" bson:"planned"`
}

// EpisodeRecord summarizes a finished episode.
type EpisodeRecord struct {
	EpisodeID   uuid.UUID      `json:"episode_id" bson:"_id"`
	Seed        int64          `json:"seed" bson:"seed"`
	Algorithm   string         `json:"algorithm" bson:"algorithm"`
	Outcome     State          `json:"outcome" bson:"outcome"`
	Ticks       int            `json:"ticks" bson:"ticks"`
	Expansions  int            `json:"expansions" bson:"expansions"`
	Runtime     time.Duration  `json:"runtime" bson:"runtime"`
	Collisions  int            `json:"collisions" bson:"collisions"`
	Success     bool           `json:"success" bson:"success"`
	PathLengths []int          `json:"path_lengths" bson:"pathLengths"`
	Agents      []AgentSummary `json:"agents" bson:"agents"`
	StartedAt   time.Time      `json:"started_at" bson:"startedAt"`
}

// MixedAlgorithms labels episodes whose agents use different algorithms.
const MixedAlgorithms = "mixed"

// Recorder receives the records an episode produces.
type Recorder interface {
	RecordStep(ctx context.Context, s StepRecord) error
	RecordEpisode(ctx context.Context, e EpisodeRecord) error
}

// MemoryRecorder keeps every record in memory.
type MemoryRecorder struct {
	mu       sync.Mutex
	steps    []StepRecord
	episodes []EpisodeRecord
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) RecordStep(_ context.Context, s StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, s)
	return nil
}

func (m *MemoryRecorder) RecordEpisode(_ context.Context, e EpisodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes = append(m.episodes, e)
	return nil
}

func (m *MemoryRecorder) Steps() []StepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StepRecord(nil), m.steps...)
}

func (m *MemoryRecorder) Episodes() []EpisodeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EpisodeRecord(nil), m.episodes...)
}

// MultiRecorder forwards every record to each recorder in turn.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordStep(ctx context.Context, s StepRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordStep(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) RecordEpisode(ctx context.Context, e EpisodeRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordEpisode(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
