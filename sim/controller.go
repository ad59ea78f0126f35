// Package sim runs multi-agent episodes on a shared world.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/google/uuid"
)

// Simulation errors.
var (
	ErrNoAgents      = errors.New("episode needs at least one agent")
	ErrOccupiedStart = errors.New("two agents share a start cell")
	ErrBlockedStart  = errors.New("agent starts on a blocked cell")
	ErrEpisodeOver   = errors.New("episode is over")
)

// State is the episode lifecycle.
type State uint8

const (
	StateInit State = iota
	StateRunning
	StateSuccess
	StateFailure
	StateTimeout
)

var stateNames = map[State]string{
	StateInit:    "INIT",
	StateRunning: "RUNNING",
	StateSuccess: "SUCCESS",
	StateFailure: "FAILURE",
	StateTimeout: "TIMEOUT",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// Terminal reports whether the episode has finished.
func (s State) Terminal() bool { return s >= StateSuccess }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for k, name := range stateNames {
		if name == strings.ToUpper(string(text)) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

const (
	defaultMaxTicks     = 300
	defaultStartPoints  = 1000
	defaultAngryPenalty = 150
)

// Config tunes episode rules.
type Config struct {
	MaxTicks     int      `json:"max_ticks" yaml:"max_ticks"`
	TieBreak     TieBreak `json:"tie_break" yaml:"tie_break"`
	ReplanAfter  int      `json:"replan_after" yaml:"replan_after"`   // consecutive denied ticks before re-planning, 0 never
	YieldOnSwap  bool     `json:"yield_on_swap" yaml:"yield_on_swap"` // the unfavored side of a swap steps aside
	OccupyGoal   bool     `json:"occupy_goal" yaml:"occupy_goal"`     // arrived agents keep blocking their goal cell
	StartPoints  int      `json:"start_points" yaml:"start_points"`   // 0 disables scoring
	AngryPenalty int      `json:"angry_penalty" yaml:"angry_penalty"`
}

// DefaultConfig mirrors the race rules: 300 ticks, 1000 points, 150 per angry person.
func DefaultConfig() Config {
	return Config{
		MaxTicks:     defaultMaxTicks,
		StartPoints:  defaultStartPoints,
		AngryPenalty: defaultAngryPenalty,
	}
}

// Options carries what a controller needs besides the world and agents.
type Options struct {
	Config    Config
	EpisodeID uuid.UUID
	Seed      int64
	Rand      *rand.Rand // built from Seed when nil
	Recorder  Recorder   // optional
}

// Controller drives one episode. It is not safe for concurrent use; run
// independent episodes on independent controllers.
type Controller struct {
	id        uuid.UUID
	seed      int64
	world     *world.World
	cfg       Config
	rng       *rand.Rand
	recorder  Recorder
	agents    []*Agent
	state     State
	tick      int
	startedAt time.Time
	runtime   time.Duration
	algorithm string
}

// NewController validates the agent layout and checks, once, that every
// goal is reachable from its start.
func NewController(w *world.World, specs []AgentSpec, o Options) (*Controller, error) {
	if len(specs) == 0 {
		return nil, ErrNoAgents
	}
	if o.Config.MaxTicks <= 0 {
		o.Config.MaxTicks = defaultMaxTicks
	}
	if o.EpisodeID == uuid.Nil {
		o.EpisodeID = uuid.New()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(o.Seed))
	}

	c := &Controller{
		id:       o.EpisodeID,
		seed:     o.Seed,
		world:    w,
		cfg:      o.Config,
		rng:      o.Rand,
		recorder: o.Recorder,
		state:    StateInit,
	}

	starts := make(map[world.Pos]int)
	algorithms := make(map[string]struct{})
	for id, spec := range specs {
		if !w.Walkable(spec.Start) {
			return nil, fmt.Errorf("%w: agent %d at %s", ErrBlockedStart, id, spec.Start)
		}
		if other, taken := starts[spec.Start]; taken {
			return nil, fmt.Errorf("%w: agents %d and %d at %s", ErrOccupiedStart, other, id, spec.Start)
		}
		starts[spec.Start] = id
		if err := w.RequireReachable(spec.Start, spec.Goal); err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}

		p, err := planner.New(spec.Algorithm, spec.Params)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}
		c.agents = append(c.agents, newAgent(id, spec, p, o.Config.StartPoints))
		algorithms[spec.Algorithm.String()] = struct{}{}
	}

	c.algorithm = MixedAlgorithms
	if len(algorithms) == 1 {
		c.algorithm = specs[0].Algorithm.String()
	}
	return c, nil
}

func (c *Controller) ID() uuid.UUID    { return c.id }
func (c *Controller) State() State     { return c.state }
func (c *Controller) Tick() int        { return c.tick }
func (c *Controller) Agents() []*Agent { return c.agents }

// Start plans every agent and moves the episode to RUNNING. Agents without a
// usable plan are marked failed; the episode only fails if all of them did.
func (c *Controller) Start() error {
	if c.state != StateInit {
		return fmt.Errorf("%w: already %s", ErrEpisodeOver, c.state)
	}
	c.startedAt = time.Now()

	for _, a := range c.agents {
		a.Replace(a.planner.Plan(c.world, a.pos, a.goal, c.rng))
		switch {
		case a.pos == a.goal:
			a.status, a.reason = StatusArrived, ReasonGoal
		case !a.planned:
			a.status, a.reason = StatusFailed, ReasonPlanFail
		}
	}

	c.state = StateRunning
	c.settle()
	return nil
}

// Step advances every active agent by one synchronous tick.
func (c *Controller) Step(ctx context.Context) (StepRecord, error) {
	if c.state == StateInit {
		if err := c.Start(); err != nil {
			return StepRecord{}, err
		}
	}
	if c.state != StateRunning {
		return StepRecord{}, fmt.Errorf("%w: %s", ErrEpisodeOver, c.state)
	}

	c.tick++
	occupied := c.occupancy()
	var proposals []proposal
	for _, a := range c.agents {
		if !a.Active() {
			continue
		}
		if next, ok := a.Next(); ok {
			proposals = append(proposals, proposal{agent: a.id, from: a.pos, to: next})
		}
	}
	v := resolve(proposals, occupied, c.cfg.TieBreak)

	record := StepRecord{EpisodeID: c.id, Tick: c.tick}
	steps := make([]AgentStep, len(c.agents))
	for _, a := range c.agents {
		step := AgentStep{AgentID: a.id, Algorithm: a.Algorithm().String()}
		if a.Active() {
			a.steps++
			switch {
			case v.granted[a.id]:
				a.Advance()
				a.waiting = 0
				step.Moved = true
				a.reason = ReasonNormal
			case v.denied[a.id]:
				a.collisions++
				a.waiting++
				step.Collided = true
				a.reason = ReasonWait
			}
			c.score(a)
		}
		steps[a.id] = step
	}

	if c.cfg.YieldOnSwap {
		for _, pair := range v.swaps {
			c.yield(c.agents[pair[1]], c.agents[pair[0]])
		}
	}
	if c.cfg.ReplanAfter > 0 {
		for _, a := range c.agents {
			if a.Active() && a.waiting >= c.cfg.ReplanAfter {
				c.replan(a)
			}
		}
	}

	c.settle()
	for _, a := range c.agents {
		steps[a.id].Pos = a.pos
		steps[a.id].Status = a.status
		steps[a.id].Points = a.points
		steps[a.id].Reason = a.reason
	}
	record.Agents = steps

	if c.recorder != nil {
		if err := c.recorder.RecordStep(ctx, record); err != nil {
			return record, fmt.Errorf("recording tick %d: %w", c.tick, err)
		}
	}
	return record, nil
}

// Run drives the episode to a terminal state and reports it.
func (c *Controller) Run(ctx context.Context) (EpisodeRecord, error) {
	if c.state == StateInit {
		if err := c.Start(); err != nil {
			return EpisodeRecord{}, err
		}
	}
	for c.state == StateRunning {
		if err := ctx.Err(); err != nil {
			return EpisodeRecord{}, err
		}
		if _, err := c.Step(ctx); err != nil {
			return EpisodeRecord{}, err
		}
	}

	rec := c.Record()
	if c.recorder != nil {
		if err := c.recorder.RecordEpisode(ctx, rec); err != nil {
			return rec, fmt.Errorf("recording episode %s: %w", c.id, err)
		}
	}
	return rec, nil
}

// Record summarizes the episode so far.
func (c *Controller) Record() EpisodeRecord {
	rec := EpisodeRecord{
		EpisodeID: c.id,
		Seed:      c.seed,
		Algorithm: c.algorithm,
		Outcome:   c.state,
		Ticks:     c.tick,
		Runtime:   c.runtime,
		Success:   c.state == StateSuccess,
		StartedAt: c.startedAt,
	}
	if !c.state.Terminal() && !c.startedAt.IsZero() {
		rec.Runtime = time.Since(c.startedAt)
	}
	for _, a := range c.agents {
		s := a.summary()
		rec.Agents = append(rec.Agents, s)
		rec.PathLengths = append(rec.PathLengths, s.PathLength)
		rec.Expansions += s.Expansions
		rec.Collisions += s.Collisions
	}
	return rec
}

// occupancy maps every blocking agent to its cell.
func (c *Controller) occupancy() map[world.Pos]int {
	occupied := make(map[world.Pos]int, len(c.agents))
	for _, a := range c.agents {
		if a.occupies(c.cfg.OccupyGoal) {
			occupied[a.pos] = a.id
		}
	}
	return occupied
}

// score applies the cost of the tick and of the cell the agent stands on.
func (c *Controller) score(a *Agent) {
	if c.cfg.StartPoints <= 0 {
		return
	}
	a.points--
	if a.reason != ReasonNormal {
		if a.points <= 0 {
			a.points, a.status, a.reason = 0, StatusExhausted, ReasonNoPoints
		}
		return
	}
	cell, _ := c.world.Cell(a.pos)
	switch cell.Kind {
	case world.KindAngry:
		a.points -= c.cfg.AngryPenalty
		a.reason = ReasonAngry
	case world.KindChair:
		a.points = 0
		a.status, a.reason = StatusExhausted, ReasonChair
		return
	}
	if a.points <= 0 {
		a.points, a.status, a.reason = 0, StatusExhausted, ReasonNoPoints
	}
}

// settle updates statuses after a tick and decides whether the episode ends.
func (c *Controller) settle() {
	arrived, active, planned := 0, 0, 0
	for _, a := range c.agents {
		if a.Active() {
			if a.pos == a.goal {
				a.status, a.reason = StatusArrived, ReasonGoal
			} else if _, ok := a.Next(); !ok {
				a.status, a.reason = StatusStuck, ReasonStuck
			}
		}
		switch a.status {
		case StatusArrived:
			arrived++
		case StatusActive:
			active++
		}
		if a.planned || a.status == StatusArrived {
			planned++
		}
	}

	switch {
	case arrived == len(c.agents):
		c.finish(StateSuccess)
	case planned == 0, active == 0:
		c.finish(StateFailure)
	case c.tick >= c.cfg.MaxTicks:
		for _, a := range c.agents {
			if a.Active() {
				a.reason = ReasonNoTime
			}
		}
		c.finish(StateTimeout)
	}
}

func (c *Controller) finish(s State) {
	c.state = s
	c.runtime = time.Since(c.startedAt)
}

// replan searches again from the agent's cell, treating every other blocking
// agent as a wall. The old plan stays when nothing usable comes back.
func (c *Controller) replan(a *Agent) {
	var blocked []world.Pos
	for _, o := range c.agents {
		if o.id != a.id && o.occupies(c.cfg.OccupyGoal) && o.pos != a.goal {
			blocked = append(blocked, o.pos)
		}
	}
	res := a.planner.Plan(c.world.Without(blocked...), a.pos, a.goal, c.rng)
	a.waiting = 0
	if !usable(res) {
		a.expansions += res.Expansions
		a.planningTime += res.Runtime
		return
	}
	a.Replace(res)
	a.reason = ReasonReplanned
}

// yield moves the unfavored side of a swap onto a free neighboring cell
// closest to its goal and plans onward from there.
func (c *Controller) yield(a, favored *Agent) {
	if !a.Active() {
		return
	}
	occupied := c.occupancy()
	var side world.Pos
	found := false
	best := 0
	for _, n := range c.world.Neighbors(a.pos) {
		if _, taken := occupied[n]; taken {
			continue
		}
		d := manhattan(n, a.goal)
		if !found || d < best {
			side, best, found = n, d, true
		}
	}
	if !found {
		return
	}

	onward := a.planner.Plan(c.world.Without(favored.pos), side, a.goal, c.rng)
	if !usable(onward) {
		a.expansions += onward.Expansions
		onward = a.planner.Plan(c.world, side, a.goal, c.rng)
	}
	if !usable(onward) {
		a.expansions += onward.Expansions
		return
	}
	onward.Path = append([]world.Pos{a.pos}, onward.Path...)
	onward.Cost = c.world.PathCost(onward.Path)
	a.Replace(onward)
	a.waiting = 0
	a.reason = ReasonReplanned
}

func manhattan(a, b world.Pos) int {
	dr, dc := a.Row-b.Row, a.Col-b.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}
