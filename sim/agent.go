package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/world"
)

// Status is the lifecycle position of an agent inside an episode.
type Status uint8

const (
	StatusActive    Status = iota // following a plan
	StatusArrived                 // standing on its goal
	StatusStuck                   // plan exhausted away from the goal
	StatusFailed                  // never produced a usable plan
	StatusExhausted               // ran out of points
)

var statusNames = map[Status]string{
	StatusActive:    "active",
	StatusArrived:   "arrived",
	StatusStuck:     "stuck",
	StatusFailed:    "failed",
	StatusExhausted: "exhausted",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	for k, name := range statusNames {
		if name == strings.ToLower(string(text)) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Per-tick reasons attached to agent step records.
const (
	ReasonNormal    = "normal"
	ReasonWait      = "collision"
	ReasonAngry     = "angry"
	ReasonChair     = "chair"
	ReasonGoal      = "goal"
	ReasonNoPoints  = "no_points"
	ReasonNoTime    = "no_time"
	ReasonStuck     = "stuck"
	ReasonPlanFail  = "no_plan"
	ReasonVacated   = "vacated"
	ReasonReplanned = "replanned"
)

// AgentSpec describes an agent before the episode starts.
type AgentSpec struct {
	Algorithm planner.Algorithm `json:"algorithm" yaml:"algorithm"`
	Params    planner.Params    `json:"params" yaml:"params"`
	Start     world.Pos         `json:"start" yaml:"start"`
	Goal      world.Pos         `json:"goal" yaml:"goal"`
}

// Agent follows one plan at a time. Metrics accumulate across re-plans.
type Agent struct {
	id      int
	start   world.Pos
	goal    world.Pos
	planner planner.Planner

	pos    world.Pos
	plan   planner.Result
	cursor int
	status Status
	reason string

	steps        int
	moves        int
	collisions   int
	waiting      int // consecutive denied ticks
	expansions   int
	planningTime time.Duration
	replans      int
	points       int
	planned      bool
}

func newAgent(id int, spec AgentSpec, p planner.Planner, points int) *Agent {
	return &Agent{
		id:      id,
		start:   spec.Start,
		goal:    spec.Goal,
		planner: p,
		pos:     spec.Start,
		status:  StatusActive,
		reason:  ReasonNormal,
		points:  points,
	}
}

func (a *Agent) ID() int                      { return a.id }
func (a *Agent) Pos() world.Pos               { return a.pos }
func (a *Agent) Goal() world.Pos              { return a.goal }
func (a *Agent) Status() Status               { return a.status }
func (a *Agent) Plan() planner.Result         { return a.plan }
func (a *Agent) Algorithm() planner.Algorithm { return a.planner.Algorithm() }
func (a *Agent) Collisions() int              { return a.collisions }
func (a *Agent) Steps() int                   { return a.steps }
func (a *Agent) Moves() int                   { return a.moves }
func (a *Agent) Expansions() int              { return a.expansions }
func (a *Agent) Points() int                  { return a.points }

// Next peeks at the cell the plan moves to next.
func (a *Agent) Next() (world.Pos, bool) {
	if a.cursor+1 >= len(a.plan.Path) {
		return world.Pos{}, false
	}
	return a.plan.Path[a.cursor+1], true
}

// Advance consumes the next plan cell and moves onto it.
func (a *Agent) Advance() bool {
	next, ok := a.Next()
	if !ok {
		return false
	}
	a.cursor++
	a.pos = next
	a.moves++
	return true
}

// Replace installs a fresh plan that starts at the agent's position.
// Expansions and planning time keep adding up.
func (a *Agent) Replace(res planner.Result) {
	if a.planned {
		a.replans++
	}
	a.plan = res
	a.cursor = 0
	a.expansions += res.Expansions
	a.planningTime += res.Runtime
	if usable(res) {
		a.planned = true
	}
}

// usable plans either reach the goal or at least make progress.
func usable(res planner.Result) bool {
	return res.Success || res.Moves() > 0
}

// Active reports whether the agent still takes part in ticks.
func (a *Agent) Active() bool { return a.status == StatusActive }

// occupies reports whether the agent blocks its cell for others.
func (a *Agent) occupies(keepArrived bool) bool {
	if a.status == StatusArrived {
		return keepArrived
	}
	return true
}

func (a *Agent) summary() AgentSummary {
	return AgentSummary{
		AgentID:      a.id,
		Algorithm:    a.Algorithm().String(),
		Start:        a.start,
		Goal:         a.goal,
		Final:        a.pos,
		Status:       a.status,
		Reason:       a.reason,
		Steps:        a.steps,
		PathLength:   a.moves,
		Expansions:   a.expansions,
		PlanningTime: a.planningTime,
		Collisions:   a.collisions,
		Replans:      a.replans,
		Points:       a.points,
		Planned:      a.planned,
	}
}
