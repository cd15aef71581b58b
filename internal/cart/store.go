package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feastlyapp/feastly-backend/pkg/logger"
	redispkg "github.com/feastlyapp/feastly-backend/pkg/redis"
)

// KV is the subset of the Redis client the store needs.
type KV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartSnapshotKey(sessionID string) string
}

// Store persists cart snapshots in Redis so a session survives an API
// restart. Persistence is best-effort: the in-memory cart stays
// authoritative and a failed write only costs durability, never correctness.
type Store struct {
	client KV
	ttl    time.Duration
	logg   *logger.Logger
}

func NewStore(client KV, ttl time.Duration, logg *logger.Logger) *Store {
	return &Store{client: client, ttl: ttl, logg: logg}
}

// Save writes the snapshot under the session's cart key with the store TTL.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling cart snapshot: %w", err)
	}
	key := s.client.CartSnapshotKey(snap.SessionID)
	if err := s.client.Set(ctx, key, payload, s.ttl); err != nil {
		return fmt.Errorf("writing cart snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot for a session, or nil when none exists.
func (s *Store) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	key := s.client.CartSnapshotKey(sessionID)
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if redispkg.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cart snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// a corrupt snapshot is unrecoverable, start the session fresh
		if s.logg != nil {
			s.logg.Error(ctx, "discarding corrupt cart snapshot", err)
		}
		return nil, nil
	}
	if snap.SessionID == "" {
		snap.SessionID = sessionID
	}
	return &snap, nil
}

// Delete removes the persisted snapshot for a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.client.CartSnapshotKey(sessionID))
}
