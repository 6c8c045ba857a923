package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/homeflux/homeflux/pkg/types"
)

// Memory is an in-process Database for development and tests.
type Memory struct {
	mu          sync.Mutex
	constraints map[string][]types.UsageConstraint
	days        map[string]Day
}

// NewMemory returns an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{
		constraints: map[string][]types.UsageConstraint{},
		days:        map[string]Day{},
	}
}

func (m *Memory) InsertConstraint(ctx context.Context, household string, c types.UsageConstraint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints[household] = append(m.constraints[household], c)
	return nil
}

func (m *Memory) MarkSuperseded(ctx context.Context, household, id, byID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.constraints[household] {
		if c.ID == id {
			m.constraints[household][i].Superseded = true
			m.constraints[household][i].SupersededBy = byID
			return nil
		}
	}
	return fmt.Errorf("%w: constraint %s", ErrNotFound, id)
}

func (m *Memory) ListConstraints(ctx context.Context, household string) ([]types.UsageConstraint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.UsageConstraint, len(m.constraints[household]))
	copy(out, m.constraints[household])
	return out, nil
}

func (m *Memory) UpsertDay(ctx context.Context, household string, d Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[household] = d
	return nil
}

func (m *Memory) GetDay(ctx context.Context, household string) (Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[household]
	if !ok {
		return Day{}, fmt.Errorf("%w: no day for household %s", ErrNotFound, household)
	}
	return d, nil
}

func (m *Memory) Close() error {
	return nil
}
