package catalog

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

type stubLoader struct {
	mu    sync.Mutex
	items []Item
	err   error
	calls int
}

func (s *stubLoader) ListItems(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubLoader) set(items []Item, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.err = err
}

func (s *stubLoader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubListener struct {
	signals chan struct{}
}

func (s *stubListener) Listen(ctx context.Context) (<-chan struct{}, func(), error) {
	return s.signals, func() {}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testItem(name string, price string) Item {
	return Item{
		ID:        uuid.New(),
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Category:  "Other",
		Available: true,
	}
}

func TestMirrorRefresh_replacesWholeSnapshot(t *testing.T) {
	loader := &stubLoader{}
	mirror := NewMirror(loader, nil, testLogger(), MirrorOptions{})

	first := testItem("Pho", "11.00")
	loader.set([]Item{first}, nil)

	snap, err := mirror.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	got, ok := snap.Lookup(first.ID)
	require.True(t, ok)
	assert.Equal(t, "Pho", got.Name)

	// a reload with a disjoint set removes the old item entirely
	second := testItem("Bao", "6.50")
	loader.set([]Item{second}, nil)

	snap, err = mirror.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	_, ok = snap.Lookup(first.ID)
	assert.False(t, ok)
	_, ok = snap.Lookup(second.ID)
	assert.True(t, ok)
	assert.Greater(t, snap.Version, uint64(1))
}

func TestMirrorRefresh_failureKeepsLastKnown(t *testing.T) {
	loader := &stubLoader{}
	var reported []error
	mirror := NewMirror(loader, nil, testLogger(), MirrorOptions{
		OnError: func(err error) { reported = append(reported, err) },
	})

	item := testItem("Tacos", "9.00")
	loader.set([]Item{item}, nil)
	_, err := mirror.Refresh(context.Background())
	require.NoError(t, err)

	loader.set(nil, errors.New("connection refused"))
	snap, err := mirror.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	// degraded read still serves the previous catalog
	require.Equal(t, 1, snap.Len())
	_, ok := snap.Lookup(item.ID)
	assert.True(t, ok)
	require.Len(t, reported, 1)
}

func TestMirrorSnapshot_emptyBeforeFirstLoad(t *testing.T) {
	mirror := NewMirror(&stubLoader{}, nil, testLogger(), MirrorOptions{})
	snap := mirror.Snapshot()
	assert.Zero(t, snap.Version)
	assert.Zero(t, snap.Len())
}

func TestMirrorSubscribe_deliversCurrentAndUpdates(t *testing.T) {
	loader := &stubLoader{}
	mirror := NewMirror(loader, nil, testLogger(), MirrorOptions{})

	item := testItem("Ramen", "13.00")
	loader.set([]Item{item}, nil)
	_, err := mirror.Refresh(context.Background())
	require.NoError(t, err)

	ch, cancel := mirror.Subscribe()
	defer cancel()

	select {
	case snap := <-ch:
		assert.Equal(t, uint64(1), snap.Version)
	case <-time.After(time.Second):
		t.Fatal("expected immediate snapshot delivery")
	}

	loader.set([]Item{item, testItem("Gyoza", "5.00")}, nil)
	_, err = mirror.Refresh(context.Background())
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, 2, snap.Len())
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after reload")
	}
}

func TestMirrorSubscribe_coalescesToNewest(t *testing.T) {
	loader := &stubLoader{}
	mirror := NewMirror(loader, nil, testLogger(), MirrorOptions{})

	loader.set([]Item{testItem("A", "1.00")}, nil)
	_, err := mirror.Refresh(context.Background())
	require.NoError(t, err)

	ch, cancel := mirror.Subscribe()
	defer cancel()

	// two reloads without the consumer draining: only the newest survives
	loader.set([]Item{testItem("B", "2.00"), testItem("C", "3.00")}, nil)
	_, err = mirror.Refresh(context.Background())
	require.NoError(t, err)
	loader.set([]Item{testItem("D", "4.00"), testItem("E", "5.00"), testItem("F", "6.00")}, nil)
	_, err = mirror.Refresh(context.Background())
	require.NoError(t, err)

	snap := <-ch
	assert.Equal(t, 3, snap.Len())
	select {
	case <-ch:
		t.Fatal("expected intermediate snapshot to be dropped")
	default:
	}
}

func TestMirrorRun_reloadsOnSignal(t *testing.T) {
	loader := &stubLoader{}
	listener := &stubListener{signals: make(chan struct{}, 1)}
	mirror := NewMirror(loader, listener, testLogger(), MirrorOptions{})

	loader.set([]Item{testItem("Initial", "1.00")}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mirror.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mirror.Snapshot().Version > 0
	}, 2*time.Second, 10*time.Millisecond)

	loader.set([]Item{testItem("Updated", "2.00"), testItem("Extra", "3.00")}, nil)
	listener.signals <- struct{}{}

	require.Eventually(t, func() bool {
		return mirror.Snapshot().Len() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.GreaterOrEqual(t, loader.callCount(), 2)
}
