package cart

import (
	"context"
	"sync"
	"time"

	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

// Persistence is the snapshot store surface used by the manager.
type Persistence interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// ManagerOptions tunes session lifetime handling.
type ManagerOptions struct {
	// CartTTL is how long an idle session keeps its cart before the
	// janitor evicts it.
	CartTTL time.Duration
	// JanitorInterval is how often idle sessions are swept.
	JanitorInterval time.Duration
}

type session struct {
	cart     *Cart
	lastSeen time.Time
}

// Manager owns the cart instances for all active sessions. Each session gets
// exactly one cart, created empty on first touch, evicted after the idle TTL,
// and rehydrated from the persistence layer when available.
type Manager struct {
	store Persistence
	logg  *logger.Logger
	opts  ManagerOptions

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(store Persistence, logg *logger.Logger, opts ManagerOptions) *Manager {
	if opts.CartTTL <= 0 {
		opts.CartTTL = 24 * time.Hour
	}
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = 5 * time.Minute
	}
	return &Manager{
		store:    store,
		logg:     logg,
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Get returns the session's cart, rehydrating it from the store or creating
// an empty one on first touch. A store failure degrades to a fresh cart.
func (m *Manager) Get(ctx context.Context, sessionID string) *Cart {
	m.mu.Lock()
	if entry, ok := m.sessions[sessionID]; ok {
		entry.lastSeen = time.Now()
		cart := entry.cart
		m.mu.Unlock()
		return cart
	}
	m.mu.Unlock()

	cart := m.rehydrate(ctx, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	// re-check under lock, another request may have won the race
	if entry, ok := m.sessions[sessionID]; ok {
		entry.lastSeen = time.Now()
		return entry.cart
	}
	m.sessions[sessionID] = &session{cart: cart, lastSeen: time.Now()}
	return cart
}

func (m *Manager) rehydrate(ctx context.Context, sessionID string) *Cart {
	if m.store == nil {
		return New(sessionID)
	}
	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, "loading persisted cart, starting fresh", err)
		}
		return New(sessionID)
	}
	if snap == nil {
		return New(sessionID)
	}
	return Restore(*snap)
}

// Persist writes the cart's current snapshot through the store. Best-effort.
func (m *Manager) Persist(ctx context.Context, cart *Cart) {
	if m.store == nil || cart == nil {
		return
	}
	if err := m.store.Save(ctx, cart.Snapshot()); err != nil && m.logg != nil {
		m.logg.Error(ctx, "persisting cart snapshot", err)
	}
}

// Drop removes the session's cart from memory and from the store.
func (m *Manager) Drop(ctx context.Context, sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, sessionID); err != nil && m.logg != nil {
			m.logg.Error(ctx, "deleting persisted cart snapshot", err)
		}
	}
}

// ActiveSessions reports how many carts are currently resident.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps idle sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			evicted := m.sweep(time.Now())
			if evicted > 0 && m.logg != nil {
				m.logg.Info(m.logg.WithField(ctx, "evicted", evicted), "swept idle cart sessions")
			}
		}
	}
}

func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, entry := range m.sessions {
		if now.Sub(entry.lastSeen) > m.opts.CartTTL {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
