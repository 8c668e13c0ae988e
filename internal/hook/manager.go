package hook

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Manager dispatches events to registered handlers.
type Manager struct {
	handlers map[Point][]Handler
	mu       sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		handlers: make(map[Point][]Handler),
	}
}

func (m *Manager) Register(handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, point := range handler.Points() {
		list := append(m.handlers[point], handler)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		m.handlers[point] = list
	}
}

// Trigger runs the handlers for event.Point in priority order and stops at
// the first deny. A nil manager allows everything.
func (m *Manager) Trigger(ctx context.Context, event *Event) (*Feedback, error) {
	if m == nil {
		return Allow(), nil
	}

	m.mu.RLock()
	handlers := m.handlers[event.Point]
	m.mu.RUnlock()

	for _, handler := range handlers {
		feedback, err := handler.Handle(ctx, event)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", handler.Name(), err)
		}
		if feedback != nil && !feedback.Allow {
			return feedback, nil
		}
	}
	return Allow(), nil
}

// Notify triggers an observational point and ignores the outcome.
func (m *Manager) Notify(ctx context.Context, event *Event) {
	_, _ = m.Trigger(ctx, event)
}

func (m *Manager) HasHandlers(point Point) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[point]) > 0
}

func (m *Manager) ListHandlers(point Point) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	handlers := m.handlers[point]
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.Name()
	}
	return names
}
