package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers  = 4
	maxEpisodes     = 10000
	maxBatchAgents  = 16
	maxBatchEntries = 32
)

// RecorderFactory opens the recorder of a single episode. index is the
// episode's position within its lineup.
type RecorderFactory func(id uuid.UUID, label string, index int) (sim.Recorder, error)

// BatchOptions wires a BatchRunner to its collaborators. Every field is optional.
type BatchOptions struct {
	Workers     int
	Repo        i.EpisodeRepo
	Leaderboard i.Leaderboard
	Recorders   RecorderFactory
	Shared      sim.Recorder // sees every episode of every batch
}

// BatchRunner plays many independent episodes in parallel. Each episode owns
// its world, controller and random generator, so results only depend on the
// request.
type BatchRunner struct {
	logger i.Logger
	opts   *BatchOptions
}

func NewBatchRunner(logger i.Logger, opts *BatchOptions) (*BatchRunner, error) {
	if logger == nil {
		return nil, errors.New("batch runner needs a logger")
	}
	if opts == nil {
		opts = &BatchOptions{}
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &BatchRunner{logger: logger, opts: opts}, nil
}

// ValidateBatch rejects requests a runner cannot play.
func ValidateBatch(req dmn.BatchRequest) error {
	switch {
	case req.Episodes <= 0 || req.Episodes > maxEpisodes:
		return fmt.Errorf("%w: episodes must be in 1..%d, got %d", dmn.ErrInvalidRequest, maxEpisodes, req.Episodes)
	case req.Agents <= 0 || req.Agents > maxBatchAgents:
		return fmt.Errorf("%w: agents must be in 1..%d, got %d", dmn.ErrInvalidRequest, maxBatchAgents, req.Agents)
	case len(req.Entrants) == 0 || len(req.Entrants) > maxBatchEntries:
		return fmt.Errorf("%w: need 1..%d entrants, got %d", dmn.ErrInvalidRequest, maxBatchEntries, len(req.Entrants))
	case req.Rules.MaxTicks < 0 || req.Rules.ReplanAfter < 0 || req.Rules.StartPoints < 0 || req.Rules.AngryPenalty < 0:
		return fmt.Errorf("%w: rules must not be negative", dmn.ErrInvalidRequest)
	}
	if err := req.World.Validate(); err != nil {
		return fmt.Errorf("%w: %v", dmn.ErrInvalidRequest, err)
	}
	for _, e := range req.Entrants {
		if !e.Algorithm.Valid() {
			return fmt.Errorf("%w: unknown algorithm %d", dmn.ErrInvalidRequest, e.Algorithm)
		}
		if err := e.Params.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", dmn.ErrInvalidRequest, e.Algorithm, err)
		}
	}
	return nil
}

type lineup struct {
	label  string
	agents []sim.AgentSpec
}

// lineups gives every entrant a lineup of its own and, for mixed batches,
// adds one where agents take the entrants in turn.
func lineups(req dmn.BatchRequest) []lineup {
	var out []lineup
	for _, e := range req.Entrants {
		l := lineup{label: e.Algorithm.String()}
		for k := 0; k < req.Agents; k++ {
			l.agents = append(l.agents, e)
		}
		out = append(out, l)
	}
	if req.Mixed && len(req.Entrants) > 1 {
		l := lineup{label: sim.MixedAlgorithms}
		for k := 0; k < req.Agents; k++ {
			l.agents = append(l.agents, req.Entrants[k%len(req.Entrants)])
		}
		out = append(out, l)
	}
	return out
}

// Run plays the batch. It stops at the first episode that cannot be played
// or stored; leaderboard failures are only logged.
func (b *BatchRunner) Run(ctx context.Context, req dmn.BatchRequest) (*dmn.BatchSummary, error) {
	if err := ValidateBatch(req); err != nil {
		return nil, err
	}

	began := time.Now()
	ls := lineups(req)
	results := make([]sim.EpisodeRecord, len(ls)*req.Episodes)
	b.logger.Info(fmt.Sprintf("Starting batch %q: %d lineups x %d episodes, seed %d", req.Name, len(ls), req.Episodes, req.Seed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for li, l := range ls {
		for k := 0; k < req.Episodes; k++ {
			l, k := l, k
			idx := li*req.Episodes + k
			g.Go(func() error {
				rec, err := b.episode(gctx, req, l, k)
				if err != nil {
					return fmt.Errorf("%s episode %d: %w", l.label, k, err)
				}
				results[idx] = rec
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		b.logger.Error(fmt.Sprintf("Batch %q failed: %v", req.Name, err))
		return nil, err
	}

	summary := &dmn.BatchSummary{
		Name:     req.Name,
		Seed:     req.Seed,
		Episodes: results,
		Elapsed:  time.Since(began),
	}
	for li, l := range ls {
		s := Summarize(l.label, results[li*req.Episodes:(li+1)*req.Episodes])
		summary.Lineups = append(summary.Lineups, s)
		b.logger.Info(fmt.Sprintf("%s: success %.0f%%, mean ticks %.1f, mean expansions %.1f", s.Algorithm, 100*s.SuccessRate, s.MeanTicks, s.MeanExpansions))
	}
	return summary, nil
}

// episode plays episode k of a lineup. Seed Seed+k drives the campus, the
// placement and the controller alike.
func (b *BatchRunner) episode(ctx context.Context, req dmn.BatchRequest, l lineup, k int) (sim.EpisodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return sim.EpisodeRecord{}, err
	}

	seed := req.Seed + int64(k)
	rng := rand.New(rand.NewSource(seed))
	w, pl, err := world.Build(req.World, rng)
	if err != nil {
		return sim.EpisodeRecord{}, err
	}
	specs, err := sim.Place(w, pl, l.agents, rng)
	if err != nil {
		return sim.EpisodeRecord{}, err
	}

	id := uuid.New()
	var recorders sim.MultiRecorder
	if b.opts.Recorders != nil {
		r, err := b.opts.Recorders(id, l.label, k)
		if err != nil {
			return sim.EpisodeRecord{}, fmt.Errorf("opening recorder: %w", err)
		}
		// Closing is a no-op for recorders that saw the episode end.
		if closer, ok := r.(io.Closer); ok {
			defer closer.Close()
		}
		recorders = append(recorders, r)
	}
	if b.opts.Shared != nil {
		recorders = append(recorders, b.opts.Shared)
	}

	opts := sim.Options{Config: req.Rules, EpisodeID: id, Seed: seed, Rand: rng}
	if len(recorders) > 0 {
		opts.Recorder = recorders
	}
	c, err := sim.NewController(w, specs, opts)
	if err != nil {
		return sim.EpisodeRecord{}, err
	}
	rec, err := c.Run(ctx)
	if err != nil {
		return rec, err
	}

	if b.opts.Repo != nil {
		if err := b.opts.Repo.Save(ctx, rec); err != nil {
			return rec, fmt.Errorf("saving episode %s: %w", rec.EpisodeID, err)
		}
	}
	if b.opts.Leaderboard != nil {
		if err := b.opts.Leaderboard.Submit(ctx, rec); err != nil {
			b.logger.Warning(fmt.Sprintf("Leaderboard rejected episode %s: %v", rec.EpisodeID, err))
		}
	}
	return rec, nil
}

// Summarize aggregates the episodes of one lineup. Path lengths are averaged
// over agents that arrived, points over every agent.
func Summarize(label string, recs []sim.EpisodeRecord) dmn.LineupSummary {
	s := dmn.LineupSummary{Algorithm: label, Episodes: len(recs)}
	if len(recs) == 0 {
		return s
	}

	var ticks, expansions, collisions, points, pathLength float64
	var agents, arrived int
	var runtime time.Duration
	for _, r := range recs {
		switch r.Outcome {
		case sim.StateSuccess:
			s.Successes++
		case sim.StateTimeout:
			s.Timeouts++
		default:
			s.Failures++
		}
		ticks += float64(r.Ticks)
		expansions += float64(r.Expansions)
		collisions += float64(r.Collisions)
		runtime += r.Runtime
		for _, a := range r.Agents {
			agents++
			points += float64(a.Points)
			if a.Status == sim.StatusArrived {
				arrived++
				pathLength += float64(a.PathLength)
			}
		}
	}

	n := float64(len(recs))
	s.SuccessRate = float64(s.Successes) / n
	s.MeanTicks = ticks / n
	s.MeanExpansions = expansions / n
	s.MeanCollisions = collisions / n
	s.MeanRuntime = runtime / time.Duration(len(recs))
	if agents > 0 {
		s.MeanPoints = points / float64(agents)
	}
	if arrived > 0 {
		s.MeanPathLength = pathLength / float64(arrived)
	}
	return s
}
