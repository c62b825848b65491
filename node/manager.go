package node

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Manager lets only one node start at a time. Nodes bind fixed ports, so a second startup
// must wait until the first has finished (successfully or not).
type Manager struct {
	slot *semaphore.Weighted
}

func NewManager() *Manager {
	return &Manager{slot: semaphore.NewWeighted(1)}
}

var defaultManager = NewManager()

func Default() *Manager {
	return defaultManager
}

func (m *Manager) Start(ctx context.Context, l Launcher) (Instance, error) {
	if err := m.slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.slot.Release(1)
	return l.Launch(ctx)
}
