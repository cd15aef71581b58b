package catalog

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

// Loader supplies a full catalog listing from the source of truth.
type Loader interface {
	ListItems(ctx context.Context) ([]Item, error)
}

// Listener delivers change signals that tell the mirror to reload.
type Listener interface {
	Listen(ctx context.Context) (<-chan struct{}, func(), error)
}

// MirrorOptions tunes reload and resubscribe behavior.
type MirrorOptions struct {
	ReloadTimeout  time.Duration
	ResubscribeMin time.Duration
	ResubscribeMax time.Duration
	// OnError is invoked whenever a reload or the signal stream fails. The
	// mirror keeps serving its last-known snapshot regardless.
	OnError func(error)
}

// Mirror keeps an in-memory copy of the catalog, replaced wholesale on every
// reload. Reads never touch the database.
type Mirror struct {
	loader   Loader
	listener Listener
	logg     *logger.Logger
	opts     MirrorOptions

	// reloadMu serializes reloads so installs happen in load order.
	reloadMu sync.Mutex

	mu      sync.RWMutex
	snap    Snapshot
	version uint64

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewMirror(loader Loader, listener Listener, logg *logger.Logger, opts MirrorOptions) *Mirror {
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = 10 * time.Second
	}
	if opts.ResubscribeMin <= 0 {
		opts.ResubscribeMin = time.Second
	}
	if opts.ResubscribeMax < opts.ResubscribeMin {
		opts.ResubscribeMax = 30 * time.Second
	}
	return &Mirror{
		loader:   loader,
		listener: listener,
		logg:     logg,
		opts:     opts,
		subs:     make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current catalog view. Before the first successful load
// it is empty with Version zero.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Refresh reloads the catalog once. On failure the last-known snapshot is
// returned alongside the error and nothing is replaced.
func (m *Mirror) Refresh(ctx context.Context) (Snapshot, error) {
	snap, err := m.reload(ctx)
	if err != nil {
		m.reportError(err)
		return m.Snapshot(), err
	}
	return snap, nil
}

// Subscribe registers a consumer for full-snapshot updates. If the mirror has
// loaded at least once, the current snapshot is delivered immediately.
// Deliveries coalesce: a slow consumer only ever sees the latest snapshot.
// The returned cancel function must be called to release the subscription.
func (m *Mirror) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	if snap := m.Snapshot(); snap.Version > 0 {
		select {
		case ch <- snap:
		default:
			// a broadcast already queued a newer snapshot
		}
	}

	cancel := func() {
		m.subMu.Lock()
		if existing, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(existing)
		}
		m.subMu.Unlock()
	}
	return ch, cancel
}

// Run performs the initial load, then reloads on every change signal until
// ctx is canceled. A broken signal stream is resubscribed with exponential
// backoff; the last-known snapshot stays live throughout.
func (m *Mirror) Run(ctx context.Context) error {
	if _, err := m.reload(ctx); err != nil {
		m.reportError(err)
		m.logg.Error(ctx, "initial catalog load failed, serving empty catalog until source recovers", err)
	}

	backoff := m.opts.ResubscribeMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		signals, stop, err := m.listener.Listen(ctx)
		if err != nil {
			m.reportError(err)
			m.logg.Error(ctx, "catalog change subscription failed", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > m.opts.ResubscribeMax {
				backoff = m.opts.ResubscribeMax
			}
			continue
		}
		backoff = m.opts.ResubscribeMin

		// reload once after (re)subscribing to cover signals missed
		// while disconnected
		if _, err := m.reload(ctx); err != nil {
			m.reportError(err)
		}

		if err := m.pump(ctx, signals); err != nil {
			stop()
			return err
		}
		stop()
		m.logg.Warn(ctx, "catalog change stream closed, resubscribing")
	}
}

func (m *Mirror) pump(ctx context.Context, signals <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if _, err := m.reload(ctx); err != nil {
				m.reportError(err)
			}
		}
	}
}

func (m *Mirror) reload(ctx context.Context) (Snapshot, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, m.opts.ReloadTimeout)
	defer cancel()

	items, err := m.loader.ListItems(loadCtx)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading catalog")
	}

	m.mu.Lock()
	m.version++
	snap := newSnapshot(items, m.version)
	m.snap = snap
	m.mu.Unlock()

	m.broadcast(snap)
	if m.logg != nil {
		fields := map[string]any{"items": len(items), "version": snap.Version}
		m.logg.Info(m.logg.WithFields(ctx, fields), "catalog reloaded")
	}
	return snap, nil
}

func (m *Mirror) broadcast(snap Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale pending snapshot, keep the newest
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (m *Mirror) reportError(err error) {
	if m.opts.OnError != nil {
		m.opts.OnError(err)
	}
}
