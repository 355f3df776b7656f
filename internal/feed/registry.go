package feed

import (
	"context"
	"sync"
	"time"

	"vibeweb/internal/observability"
	"vibeweb/internal/session"
)

type registryEntry struct {
	ctrl     *Controller
	lastUsed time.Time
}

// Registry holds one Controller per browser session and evicts idle ones.
type Registry struct {
	src  PageSource
	opts Options
	idle time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry creates an empty registry. Controllers unused for idle are
// dropped by Sweep.
func NewRegistry(src PageSource, opts Options, idle time.Duration) *Registry {
	return &Registry{
		src:     src,
		opts:    opts,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// Mount replaces the session's controller with a fresh one and loads its
// first page. The controller is returned even when the first fetch fails.
func (r *Registry) Mount(ctx context.Context, sess session.Session) (*Controller, error) {
	ctrl := New(r.src, sess, r.opts)

	r.mu.Lock()
	if old, ok := r.entries[sess.ID]; ok {
		old.ctrl.Close()
	} else {
		observability.ActiveFeeds.Inc()
	}
	r.entries[sess.ID] = &registryEntry{ctrl: ctrl, lastUsed: r.now()}
	r.mu.Unlock()

	return ctrl, ctrl.Mount(ctx)
}

// Get returns the session's controller. A controller built for a different
// credential is not returned, so a login or logout always forces a remount.
func (r *Registry) Get(sess session.Session) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sess.ID]
	if !ok || e.ctrl.Session().Token != sess.Token {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.ctrl, true
}

// Drop discards the session's controller, cancelling any fetch it has in flight.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(sid)
}

func (r *Registry) dropLocked(sid string) {
	e, ok := r.entries[sid]
	if !ok {
		return
	}
	e.ctrl.Close()
	delete(r.entries, sid)
	observability.ActiveFeeds.Dec()
}

// Len returns the number of held controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts controllers idle for longer than the configured duration and
// returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for sid, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			r.dropLocked(sid)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				observability.Logger.Debug("evicted idle feeds", "count", n)
			}
		}
	}
}
