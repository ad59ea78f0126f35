package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/google/uuid"
)

const (
	defaultMaxActiveRuns   = 4
	defaultMaxFinishedRuns = 100
	defaultRunRetention    = time.Hour
)

var ErrTooManyRuns = errors.New("too many runs in progress")

type run struct {
	info   dmn.RunInfo
	cancel context.CancelFunc
}

// RunManager plays submitted batches in the background. Finished runs are
// kept for Retention and at most MaxFinished of them, oldest dropped first.
type RunManager struct {
	batcher     i.Batcher
	runs        map[uuid.UUID]*run
	finished    []uuid.UUID // in finishing order
	active      int
	maxActive   int
	maxFinished int
	retention   time.Duration
	now         func() time.Time
	logger      i.Logger
	wg          sync.WaitGroup
	sync.RWMutex
}

type RunManagerConfig struct {
	Batcher     i.Batcher
	MaxActive   int           // concurrent runs, further submissions are refused
	MaxFinished int           // finished runs kept for Info
	Retention   time.Duration // how long a finished run stays visible
	Logger      i.Logger
}

func NewRunManager(c *RunManagerConfig) (*RunManager, error) {
	if c == nil || c.Batcher == nil {
		return nil, errors.New("run manager needs a batcher")
	}
	if c.Logger == nil {
		return nil, errors.New("run manager needs a logger")
	}
	if c.MaxActive <= 0 {
		c.MaxActive = defaultMaxActiveRuns
	}
	if c.MaxFinished <= 0 {
		c.MaxFinished = defaultMaxFinishedRuns
	}
	if c.Retention <= 0 {
		c.Retention = defaultRunRetention
	}
	return &RunManager{
		batcher:     c.Batcher,
		runs:        make(map[uuid.UUID]*run),
		maxActive:   c.MaxActive,
		maxFinished: c.MaxFinished,
		retention:   c.Retention,
		now:         time.Now,
		logger:      c.Logger,
	}, nil
}

// Submit validates req and starts playing it.
func (m *RunManager) Submit(owner string, req dmn.BatchRequest) (uuid.UUID, error) {
	if err := ValidateBatch(req); err != nil {
		m.logger.Error(fmt.Sprintf("Rejected batch from %q: %s", owner, err))
		return uuid.Nil, err
	}

	m.Lock()
	m.prune()
	if m.active >= m.maxActive {
		m.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %d active", ErrTooManyRuns, m.maxActive)
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := m.saveRun(owner, cancel)
	m.active++
	m.wg.Add(1)
	m.Unlock()

	go m.execute(ctx, id, req)
	m.logger.Info(fmt.Sprintf("Submitted run %s for %q", id, owner))
	return id, nil
}

// Info returns a copy of the run's current state.
func (m *RunManager) Info(id uuid.UUID) (*dmn.RunInfo, error) {
	m.Lock()
	defer m.Unlock()
	m.prune()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, dmn.ErrNotFound)
	}
	info := r.info
	return &info, nil
}

// StopAll cancels every unfinished run and waits for them to return.
func (m *RunManager) StopAll() {
	m.Lock()
	for _, r := range m.runs {
		r.cancel()
	}
	m.Unlock()
	m.wg.Wait()
}

func (m *RunManager) saveRun(owner string, cancel context.CancelFunc) uuid.UUID {
	id := uuid.New()
	for {
		if _, ok := m.runs[id]; !ok {
			break
		}
		id = uuid.New()
	}

	m.runs[id] = &run{
		info: dmn.RunInfo{
			ID:          id,
			Owner:       owner,
			Status:      dmn.RunPending,
			SubmittedAt: m.now().UTC(),
		},
		cancel: cancel,
	}
	return id
}

// prune drops finished runs past the retention window or beyond the cap.
// The caller holds the write lock.
func (m *RunManager) prune() {
	cutoff := m.now().Add(-m.retention)
	drop := 0
	for _, id := range m.finished {
		if len(m.finished)-drop <= m.maxFinished && !m.runs[id].info.FinishedAt.Before(cutoff) {
			break
		}
		delete(m.runs, id)
		drop++
	}
	m.finished = m.finished[drop:]
}

func (m *RunManager) execute(ctx context.Context, id uuid.UUID, req dmn.BatchRequest) {
	defer m.wg.Done()

	m.Lock()
	m.runs[id].info.Status = dmn.RunRunning
	m.Unlock()

	summary, err := m.batcher.Run(ctx, req)

	m.Lock()
	defer m.Unlock()
	r := m.runs[id]
	r.cancel()
	m.active--
	r.info.FinishedAt = m.now().UTC()
	m.finished = append(m.finished, id)
	defer m.prune()

	if err != nil {
		r.info.Status = dmn.RunFailed
		r.info.Error = err.Error()
		m.logger.Error(fmt.Sprintf("Run %s failed: %s", id, err))
		return
	}
	r.info.Status = dmn.RunDone
	r.info.Summary = summary
	m.logger.Info(fmt.Sprintf("Run %s finished in %s", id, summary.Elapsed))
}
