package storage

import (
	"context"
	"sync"

	"github.com/denisok6893-rgb/travel-matching/internal/matching"
)

// MemoryInteractions keeps session interaction logs in process memory. It
// backs the session endpoints when no database is configured.
type MemoryInteractions struct {
	mu   sync.Mutex
	logs map[string]matching.InteractionLog
}

func NewMemoryInteractions() *MemoryInteractions {
	return &MemoryInteractions{logs: make(map[string]matching.InteractionLog)}
}

func (m *MemoryInteractions) AppendInteraction(_ context.Context, sessionID, destinationID string, window int) (matching.InteractionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.logs[sessionID].Append(destinationID, window)
	m.logs[sessionID] = next
	return append(matching.InteractionLog{}, next...), nil
}

func (m *MemoryInteractions) GetInteractions(_ context.Context, sessionID string) (matching.InteractionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(matching.InteractionLog{}, m.logs[sessionID]...), nil
}

func (m *MemoryInteractions) ClearInteractions(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.logs, sessionID)
	m.mu.Unlock()
	return nil
}
