package callcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

const (
	contextKeyPrefix = "call:context:"
	defaultTTL       = 4 * time.Hour
)

// Store manages call contexts in Redis.
//
// Every operation is fail-soft: a Redis I/O error is logged and swallowed
// so a degraded cache can never take down a live call. Load returns nil
// for both "missing" and "unreadable"; the engine re-initializes in either
// case. The store takes no lock on the context key — turns for one call
// are assumed to arrive sequentially (see Save's advisory version check).
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewStore creates a call context store backed by Redis.
func NewStore(rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *Store {
	if rdb == nil {
		panic("callcontext: redis client required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{rdb: rdb, ttl: ttl, logger: logger}
}

func contextKey(callID string) string {
	return contextKeyPrefix + callID
}

// Init creates and persists a fresh context for a call.
func (s *Store) Init(ctx context.Context, callID, companyID, trade, configVersion string) *Context {
	now := time.Now().UTC()
	cc := &Context{
		Schema:        SchemaVersion,
		CallID:        callID,
		CompanyID:     companyID,
		Trade:         trade,
		ConfigVersion: configVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.Save(ctx, cc)
	return cc
}

// Load fetches the context for a call, or nil when absent or unreadable.
func (s *Store) Load(ctx context.Context, callID string) *Context {
	data, err := s.rdb.Get(ctx, contextKey(callID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		s.logger.Error("call context load failed", "call_id", callID, "error", err)
		return nil
	}

	var cc Context
	if err := json.Unmarshal(data, &cc); err != nil {
		s.logger.Error("call context unmarshal failed", "call_id", callID, "error", err)
		return nil
	}
	if cc.Schema != SchemaVersion {
		s.logger.Warn("call context schema mismatch, discarding",
			"call_id", callID, "found", cc.Schema, "want", SchemaVersion)
		return nil
	}
	return &cc
}

// Save persists the context and refreshes its expiry. Before writing it
// compares the stored version with the one this context was loaded at; a
// mismatch means another writer got there first. The conflict is logged
// and the write proceeds — this is an advisory check, not a lock.
func (s *Store) Save(ctx context.Context, cc *Context) {
	if cc == nil || cc.CallID == "" {
		return
	}

	if stored := s.Load(ctx, cc.CallID); stored != nil && stored.Version != cc.Version {
		s.logger.Warn("call context version conflict, overwriting",
			"call_id", cc.CallID, "stored_version", stored.Version, "our_version", cc.Version)
	}

	cc.Version++
	cc.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cc)
	if err != nil {
		s.logger.Error("call context marshal failed", "call_id", cc.CallID, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, contextKey(cc.CallID), data, s.ttl).Err(); err != nil {
		s.logger.Error("call context save failed", "call_id", cc.CallID, "error", err)
	}
}

// Delete removes the context. Call only after the context has been
// durably archived.
func (s *Store) Delete(ctx context.Context, callID string) {
	if err := s.rdb.Del(ctx, contextKey(callID)).Err(); err != nil {
		s.logger.Error("call context delete failed", "call_id", callID, "error", err)
	}
}

// Dump returns the serialized context for archival.
func (s *Store) Dump(ctx context.Context, callID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, contextKey(callID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("callcontext: dump: %w", err)
	}
	return data, nil
}
