// Package csvsink writes episode records as CSV files: one file of ticks per
// episode plus shared episode and agent tables for the whole batch.
package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
)

const (
	EpisodesFile = "episodes.csv"
	AgentsFile   = "agents.csv"
)

// Column order is relied upon by analysis scripts; append, never reorder.
var (
	StepHeader    = []string{"episode_id", "tick", "agent_id", "algo", "row", "col", "moved", "collided", "status", "points", "reason"}
	EpisodeHeader = []string{"episode_id", "seed", "algo", "outcome", "ticks", "expansions", "runtime_ms", "collisions", "success", "path_lengths", "started_at"}
	AgentHeader   = []string{"episode_id", "agent_id", "algo", "start", "goal", "final", "status", "reason", "steps", "path_length", "expansions", "planning_ms", "collisions", "replans", "points"}
)

var ErrClosed = errors.New("csv sink is closed")

type table struct {
	f *os.File
	w *csv.Writer
}

func createTable(path string, header []string) (*table, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	t := &table{f: f, w: csv.NewWriter(f)}
	if err := t.w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return t, nil
}

func (t *table) close() error {
	t.w.Flush()
	return errors.Join(t.w.Error(), t.f.Close())
}

// Sink owns an output directory.
type Sink struct {
	dir string

	mu       sync.Mutex
	episodes *table
	agents   *table
	open     map[*episodeWriter]struct{} // tick files not closed yet
}

// New creates dir when needed and starts the batch tables.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	episodes, err := createTable(filepath.Join(dir, EpisodesFile), EpisodeHeader)
	if err != nil {
		return nil, err
	}
	agents, err := createTable(filepath.Join(dir, AgentsFile), AgentHeader)
	if err != nil {
		_ = episodes.close()
		return nil, err
	}
	return &Sink{dir: dir, episodes: episodes, agents: agents, open: make(map[*episodeWriter]struct{})}, nil
}

// StepFile names the tick file of an episode.
func StepFile(label string, index int, id uuid.UUID) string {
	return fmt.Sprintf("%s_%03d_%s.csv", label, index, id.String()[:8])
}

// Episode opens the tick file of one episode and returns the recorder that
// fills it. The file is closed when the episode is recorded, when the
// recorder's Close is called or, at the latest, by Sink.Close.
func (s *Sink) Episode(id uuid.UUID, label string, index int) (sim.Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.episodes == nil {
		return nil, ErrClosed
	}

	steps, err := createTable(filepath.Join(s.dir, StepFile(label, index, id)), StepHeader)
	if err != nil {
		return nil, err
	}
	e := &episodeWriter{sink: s, steps: steps}
	s.open[e] = struct{}{}
	return e, nil
}

func (s *Sink) forget(e *episodeWriter) {
	s.mu.Lock()
	delete(s.open, e)
	s.mu.Unlock()
}

func (s *Sink) writeEpisode(e sim.EpisodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.episodes == nil {
		return ErrClosed
	}

	if err := s.episodes.w.Write(episodeRow(e)); err != nil {
		return err
	}
	for _, a := range e.Agents {
		if err := s.agents.w.Write(agentRow(e.EpisodeID, a)); err != nil {
			return err
		}
	}
	s.episodes.w.Flush()
	s.agents.w.Flush()
	return errors.Join(s.episodes.w.Error(), s.agents.w.Error())
}

// Close flushes and closes the batch tables and every tick file whose
// episode never finished.
func (s *Sink) Close() error {
	s.mu.Lock()
	pending := make([]*episodeWriter, 0, len(s.open))
	for e := range s.open {
		pending = append(pending, e)
	}
	s.mu.Unlock()

	var errs []error
	for _, e := range pending {
		errs = append(errs, e.Close())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.episodes == nil {
		return errors.Join(errs...)
	}
	errs = append(errs, s.episodes.close(), s.agents.close())
	s.episodes, s.agents = nil, nil
	return errors.Join(errs...)
}

type episodeWriter struct {
	sink *Sink

	mu    sync.Mutex
	steps *table
}

func (e *episodeWriter) RecordStep(_ context.Context, s sim.StepRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.steps == nil {
		return ErrClosed
	}
	for _, a := range s.Agents {
		if err := e.steps.w.Write(stepRow(s, a)); err != nil {
			return err
		}
	}
	return nil
}

func (e *episodeWriter) RecordEpisode(_ context.Context, rec sim.EpisodeRecord) error {
	e.mu.Lock()
	if e.steps == nil {
		e.mu.Unlock()
		return ErrClosed
	}
	err := e.steps.close()
	e.steps = nil
	e.mu.Unlock()

	e.sink.forget(e)
	return errors.Join(err, e.sink.writeEpisode(rec))
}

// Close flushes the ticks recorded so far and closes the file without
// writing an episode row. It is a no-op once the episode was recorded.
func (e *episodeWriter) Close() error {
	e.mu.Lock()
	if e.steps == nil {
		e.mu.Unlock()
		return nil
	}
	err := e.steps.close()
	e.steps = nil
	e.mu.Unlock()

	e.sink.forget(e)
	return err
}

func stepRow(s sim.StepRecord, a sim.AgentStep) []string {
	return []string{
		s.EpisodeID.String(),
		strconv.Itoa(s.Tick),
		strconv.Itoa(a.AgentID),
		a.Algorithm,
		strconv.Itoa(a.Pos.Row),
		strconv.Itoa(a.Pos.Col),
		strconv.FormatBool(a.Moved),
		strconv.FormatBool(a.Collided),
		a.Status.String(),
		strconv.Itoa(a.Points),
		a.Reason,
	}
}

func episodeRow(e sim.EpisodeRecord) []string {
	lengths := make([]string, len(e.PathLengths))
	for i, l := range e.PathLengths {
		lengths[i] = strconv.Itoa(l)
	}
	return []string{
		e.EpisodeID.String(),
		strconv.FormatInt(e.Seed, 10),
		e.Algorithm,
		e.Outcome.String(),
		strconv.Itoa(e.Ticks),
		strconv.Itoa(e.Expansions),
		millis(e.Runtime),
		strconv.Itoa(e.Collisions),
		strconv.FormatBool(e.Success),
		strings.Join(lengths, ";"),
		e.StartedAt.UTC().Format(time.RFC3339Nano),
	}
}

func agentRow(id uuid.UUID, a sim.AgentSummary) []string {
	return []string{
		id.String(),
		strconv.Itoa(a.AgentID),
		a.Algorithm,
		a.Start.String(),
		a.Goal.String(),
		a.Final.String(),
		a.Status.String(),
		a.Reason,
		strconv.Itoa(a.Steps),
		strconv.Itoa(a.PathLength),
		strconv.Itoa(a.Expansions),
		millis(a.PlanningTime),
		strconv.Itoa(a.Collisions),
		strconv.Itoa(a.Replans),
		strconv.Itoa(a.Points),
	}
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}
