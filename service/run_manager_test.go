package service

import (
	"context"
	"errors"
	"testing"
	"time"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatedBatcher struct {
	release chan struct{}
	err     error
}

func newGatedBatcher(err error) *gatedBatcher {
	return &gatedBatcher{release: make(chan struct{}), err: err}
}

func (b *gatedBatcher) Run(ctx context.Context, req dmn.BatchRequest) (*dmn.BatchSummary, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.err != nil {
		return nil, b.err
	}
	return &dmn.BatchSummary{Name: req.Name, Seed: req.Seed}, nil
}

func newManager(t *testing.T, b *gatedBatcher, maxActive int) *RunManager {
	t.Helper()
	m, err := NewRunManager(&RunManagerConfig{
		Batcher:   b,
		MaxActive: maxActive,
		Logger:    testLogger(t),
	})
	require.NoError(t, err)
	return m
}

func waitForStatus(t *testing.T, m *RunManager, id uuid.UUID, want dmn.RunStatus) *dmn.RunInfo {
	t.Helper()
	var info *dmn.RunInfo
	require.Eventually(t, func() bool {
		var err error
		info, err = m.Info(id)
		return err == nil && info.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return info
}

func TestRunManager(t *testing.T) {
	req := batchRequest(entrant(planner.BFS))

	t.Run("run completes with a summary", func(t *testing.T) {
		b := newGatedBatcher(nil)
		m := newManager(t, b, 2)

		id, err := m.Submit("alice", req)
		require.NoError(t, err)

		info := waitForStatus(t, m, id, dmn.RunRunning)
		assert.Equal(t, "alice", info.Owner)
		assert.Nil(t, info.Summary)

		close(b.release)
		info = waitForStatus(t, m, id, dmn.RunDone)
		require.NotNil(t, info.Summary)
		assert.Equal(t, req.Name, info.Summary.Name)
		assert.False(t, info.FinishedAt.IsZero())
		assert.Empty(t, info.Error)
	})

	t.Run("failed batch is reported", func(t *testing.T) {
		b := newGatedBatcher(errors.New("world could not be built"))
		m := newManager(t, b, 2)
		close(b.release)

		id, err := m.Submit("bob", req)
		require.NoError(t, err)
		info := waitForStatus(t, m, id, dmn.RunFailed)
		assert.Equal(t, "world could not be built", info.Error)
	})

	t.Run("invalid batch is refused", func(t *testing.T) {
		m := newManager(t, newGatedBatcher(nil), 2)
		bad := req
		bad.Episodes = 0
		_, err := m.Submit("carol", bad)
		assert.ErrorIs(t, err, dmn.ErrInvalidRequest)
	})

	t.Run("active runs are capped", func(t *testing.T) {
		b := newGatedBatcher(nil)
		m := newManager(t, b, 1)

		id, err := m.Submit("dave", req)
		require.NoError(t, err)
		_, err = m.Submit("dave", req)
		assert.ErrorIs(t, err, ErrTooManyRuns)

		close(b.release)
		waitForStatus(t, m, id, dmn.RunDone)
		_, err = m.Submit("dave", req)
		assert.NoError(t, err)
		m.StopAll()
	})

	t.Run("stop all cancels unfinished runs", func(t *testing.T) {
		m := newManager(t, newGatedBatcher(nil), 3)
		first, err := m.Submit("erin", req)
		require.NoError(t, err)
		second, err := m.Submit("erin", req)
		require.NoError(t, err)

		m.StopAll()
		for _, id := range []uuid.UUID{first, second} {
			info, err := m.Info(id)
			require.NoError(t, err)
			assert.Equal(t, dmn.RunFailed, info.Status)
			assert.Equal(t, context.Canceled.Error(), info.Error)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		m := newManager(t, newGatedBatcher(nil), 1)
		_, err := m.Info(uuid.New())
		assert.ErrorIs(t, err, dmn.ErrNotFound)
	})

	t.Run("needs a batcher and a logger", func(t *testing.T) {
		_, err := NewRunManager(&RunManagerConfig{Logger: testLogger(t)})
		assert.Error(t, err)
		_, err = NewRunManager(&RunManagerConfig{Batcher: newGatedBatcher(nil)})
		assert.Error(t, err)
	})

	t.Run("finished runs beyond the cap are evicted oldest first", func(t *testing.T) {
		b := newGatedBatcher(nil)
		close(b.release)
		m, err := NewRunManager(&RunManagerConfig{Batcher: b, MaxActive: 1, MaxFinished: 2, Logger: testLogger(t)})
		require.NoError(t, err)

		var ids []uuid.UUID
		for n := 0; n < 3; n++ {
			id, err := m.Submit("frank", req)
			require.NoError(t, err)
			waitForStatus(t, m, id, dmn.RunDone)
			ids = append(ids, id)
		}

		_, err = m.Info(ids[0])
		assert.ErrorIs(t, err, dmn.ErrNotFound)
		for _, id := range ids[1:] {
			_, err := m.Info(id)
			assert.NoError(t, err)
		}
	})

	t.Run("finished runs expire after the retention window", func(t *testing.T) {
		b := newGatedBatcher(nil)
		close(b.release)
		m, err := NewRunManager(&RunManagerConfig{Batcher: b, Retention: time.Minute, Logger: testLogger(t)})
		require.NoError(t, err)

		id, err := m.Submit("grace", req)
		require.NoError(t, err)
		finished := waitForStatus(t, m, id, dmn.RunDone).FinishedAt

		m.Lock()
		m.now = func() time.Time { return finished.Add(59 * time.Second) }
		m.Unlock()
		_, err = m.Info(id)
		require.NoError(t, err)

		m.Lock()
		m.now = func() time.Time { return finished.Add(2 * time.Minute) }
		m.Unlock()
		_, err = m.Info(id)
		assert.ErrorIs(t, err, dmn.ErrNotFound)
	})

	t.Run("unfinished runs are never evicted", func(t *testing.T) {
		b := newGatedBatcher(nil)
		m, err := NewRunManager(&RunManagerConfig{Batcher: b, MaxFinished: 1, Retention: time.Nanosecond, Logger: testLogger(t)})
		require.NoError(t, err)

		id, err := m.Submit("heidi", req)
		require.NoError(t, err)
		m.Lock()
		m.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
		m.Unlock()

		info, err := m.Info(id)
		require.NoError(t, err)
		assert.NotEqual(t, dmn.RunDone, info.Status)
		m.StopAll()
	})
}
