package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// StreamManager handles active SSE connections, fanned out per run.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[domain.RunID]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[domain.RunID]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for run. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(run domain.RunID) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[run]; !ok {
		sm.subscribers[run] = make(map[chan<- string]struct{})
	}
	sm.subscribers[run][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[run]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, run)
			}
		}
	}
}

// Subscribers returns the number of open streams for run.
func (sm *StreamManager) Subscribers(run domain.RunID) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[run])
}

// Broadcast sends msg to every subscriber of run. Slow clients drop messages
// rather than block the writer.
func (sm *StreamManager) Broadcast(run domain.RunID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[run] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "run", run)
		}
	}
}
