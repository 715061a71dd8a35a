package trainer

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chess-guess-trainer/internal/domain"
)

// memrepo keeps results in process memory. Used when no DATABASE_URL is set.
type memrepo struct {
	mu sync.RWMutex

	nextID    int64
	bySession map[string]*domain.TrainingResult
	byPlayer  map[string][]*domain.TrainingResult
}

func NewMemoryRepository() Repository {
	return &memrepo{
		bySession: make(map[string]*domain.TrainingResult),
		byPlayer:  make(map[string][]*domain.TrainingResult),
	}
}

func (m *memrepo) InsertResult(ctx context.Context, result *domain.TrainingResult) (int64, error) {
	if result == nil {
		return 0, ErrDuplicateResult
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySession[result.SessionUUID]; exists {
		return 0, ErrDuplicateResult
	}
	m.nextID++
	stored := *result
	stored.ID = m.nextID
	m.bySession[stored.SessionUUID] = &stored
	m.byPlayer[stored.PlayerHash] = append(m.byPlayer[stored.PlayerHash], &stored)
	return stored.ID, nil
}

func (m *memrepo) RecentResults(ctx context.Context, playerHash string, limit int) ([]*domain.TrainingResult, error) {
	limit = clampLimit(limit)

	m.mu.RLock()
	items := append([]*domain.TrainingResult(nil), m.byPlayer[playerHash]...)
	m.mu.RUnlock()

	// newest first, ties by id
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]*domain.TrainingResult, len(items))
	for i, it := range items {
		c := *it
		out[i] = &c
	}
	return out, nil
}
