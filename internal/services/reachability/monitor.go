package reachability

import (
	"sync"

	"go.uber.org/zap"
)

// Monitor holds the current "network usable" state and notifies subscribers
// of transitions only. Slow subscribers see the latest state, never a backlog.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	next   int
	log    *zap.SugaredLogger
}

// NewMonitor creates a monitor starting in the given state
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online: online,
		subs:   make(map[int]chan bool),
		log:    zap.S().Named("reachability"),
	}
}

// Online returns the current state
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set updates the state and reports whether it changed
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return false
	}
	m.online = online
	m.log.Infow("reachability changed", "online", online)

	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
			// replace the unread value
			select {
			case <-ch:
			default:
			}
			ch <- online
		}
	}
	return true
}

// Subscribe returns a channel of transitions and a function that ends the
// subscription and closes the channel.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	ch := make(chan bool, 1)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}
