package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
)

// MemoryEpisodeRepo keeps episodes for the lifetime of the process.
type MemoryEpisodeRepo struct {
	mu       sync.RWMutex
	episodes map[uuid.UUID]sim.EpisodeRecord
}

func NewMemoryEpisodeRepo() *MemoryEpisodeRepo {
	return &MemoryEpisodeRepo{episodes: make(map[uuid.UUID]sim.EpisodeRecord)}
}

func (r *MemoryEpisodeRepo) Save(_ context.Context, rec sim.EpisodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes[rec.EpisodeID] = rec
	return nil
}

func (r *MemoryEpisodeRepo) ByID(_ context.Context, id uuid.UUID) (*sim.EpisodeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, dmn.ErrNotFound)
	}
	return &rec, nil
}

func (r *MemoryEpisodeRepo) ByAlgorithm(_ context.Context, algorithm string, limit int) ([]sim.EpisodeRecord, error) {
	r.mu.RLock()
	var recs []sim.EpisodeRecord
	for _, rec := range r.episodes {
		if rec.Algorithm == algorithm {
			recs = append(recs, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(a, b int) bool {
		if !recs[a].StartedAt.Equal(recs[b].StartedAt) {
			return recs[a].StartedAt.After(recs[b].StartedAt)
		}
		return recs[a].EpisodeID.String() < recs[b].EpisodeID.String()
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
