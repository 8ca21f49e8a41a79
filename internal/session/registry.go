package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-redflag-detector/internal/logger"
	"go-redflag-detector/internal/pipeline"
)

// HeaderName carries the session id between the browser and the service
const HeaderName = "X-Session-ID"

// ControllerFactory builds the pipeline for a new session
type ControllerFactory func(sessionID string) *pipeline.Controller

type entry struct {
	controller *pipeline.Controller
	lastSeen   time.Time
}

// Registry keeps one pipeline controller per browser session
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	factory  ControllerFactory
	now      func() time.Time
}

func NewRegistry(ttl time.Duration, factory ControllerFactory) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// Get returns the controller for id, creating a fresh session when id is
// missing, malformed or unknown. The returned id is the one to echo back.
func (r *Registry) Get(id string) (string, *pipeline.Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
		return id, e.controller
	}

	id = uuid.NewString()
	e := &entry{controller: r.factory(id), lastSeen: r.now()}
	r.sessions[id] = e
	logger.WithField("session_id", id).Debug("Created session")
	return id, e.controller
}

// Lookup returns an existing session without creating one
func (r *Registry) Lookup(id string) (*pipeline.Controller, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.controller, true
}

// Len reports the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions idle for longer than the TTL. Sessions with a run in
// flight are kept.
func (r *Registry) Prune() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && !e.controller.Busy() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run prunes on every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Prune(); removed > 0 {
				logger.WithFields(logrus.Fields{
					"removed":  removed,
					"sessions": r.Len(),
				}).Info("Pruned idle sessions")
			}
		}
	}
}
