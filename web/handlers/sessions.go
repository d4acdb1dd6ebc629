package web

import (
	"log/slog"
	"sync"

	"nami/drawers"
)

const STREAM_PATCH_BUFFER = 32

// Sessions tracks the live update streams of each client so drawer output reaches every open tab. When a client's
// last stream goes away its drawers are stopped.
type Sessions struct {
	drawers *drawers.Registry
	logger  *slog.Logger

	mu       sync.Mutex
	byClient map[string]map[int]chan string
	next     int
}

func NewSessions(drawerRegistry *drawers.Registry, logger *slog.Logger) *Sessions {
	return &Sessions{
		drawers:  drawerRegistry,
		logger:   logger,
		byClient: make(map[string]map[int]chan string),
	}
}

// Attach registers a new update stream for clientID. The returned func detaches it.
func (s *Sessions) Attach(clientID string) (<-chan string, func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	ch := make(chan string, STREAM_PATCH_BUFFER)
	if s.byClient[clientID] == nil {
		s.byClient[clientID] = make(map[int]chan string)
	}
	s.byClient[clientID][id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { s.detach(clientID, id) })
	}
}

func (s *Sessions) detach(clientID string, id int) {
	s.mu.Lock()
	streams := s.byClient[clientID]
	delete(streams, id)
	last := len(streams) == 0
	if last {
		delete(s.byClient, clientID)
	}
	s.mu.Unlock()

	if last {
		s.drawers.CloseAll(clientID)
	}
}

func (s *Sessions) Attached(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byClient[clientID]) > 0
}

// Push queues html on every stream clientID has open. A stream that is not keeping up misses the patch.
func (s *Sessions) Push(clientID, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.byClient[clientID] {
		select {
		case ch <- html:
		default:
			s.logger.Debug("patch dropped", "client", clientID)
		}
	}
}

// Sink binds Push to one client for a drawer.
func (s *Sessions) Sink(clientID string) drawers.Sink {
	return func(html string) { s.Push(clientID, html) }
}
