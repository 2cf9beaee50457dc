package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// presence entries expire eventually so a crashed instance cannot leave a
// user marked online forever
const presenceTTL = 24 * time.Hour

const keyPrefix = "presence:online:"

type Entry struct {
	ConnectionID string
	LastSeenAt   time.Time
}

// Registry tracks which users currently hold a live connection. The local map
// answers for connections owned by this process; the redis mirror makes
// presence visible across instances. Presence is advisory and never used for
// authorization, so redis failures degrade to local-only answers.
type Registry struct {
	mu    sync.RWMutex
	local map[string]Entry
	redis *redis.Client
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{
		local: make(map[string]Entry),
		redis: rdb,
	}
}

// MarkOnline registers presence for the user. Idempotent: a second call for
// the same user overwrites the previous connection id (last connection wins).
func (r *Registry) MarkOnline(ctx context.Context, userID, connectionID string) {
	r.mu.Lock()
	r.local[userID] = Entry{ConnectionID: connectionID, LastSeenAt: time.Now()}
	r.mu.Unlock()

	if r.redis == nil {
		return
	}
	if err := r.redis.Set(ctx, keyPrefix+userID, connectionID, presenceTTL).Err(); err != nil {
		log.Warn().Err(err).Str("userID", userID).Msg("presence: failed to mirror online state to redis")
	}
}

// MarkOffline removes the local entry and the shared cache entry. Called
// exactly once per disconnect.
func (r *Registry) MarkOffline(ctx context.Context, userID string) {
	r.mu.Lock()
	delete(r.local, userID)
	r.mu.Unlock()

	if r.redis == nil {
		return
	}
	if err := r.redis.Del(ctx, keyPrefix+userID).Err(); err != nil {
		log.Warn().Err(err).Str("userID", userID).Msg("presence: failed to clear online state in redis")
	}
}

// IsOnline answers true if either the local map or the shared cache has a
// live entry, so the instance holding the socket need not be the one asked.
func (r *Registry) IsOnline(ctx context.Context, userID string) bool {
	r.mu.RLock()
	_, ok := r.local[userID]
	r.mu.RUnlock()
	if ok {
		return true
	}

	if r.redis == nil {
		return false
	}
	exists, err := r.redis.Exists(ctx, keyPrefix+userID).Result()
	if err != nil {
		log.Warn().Err(err).Msg("presence: redis lookup failed, answering from local map only")
		return false
	}
	return exists > 0
}

// OnlineStatus resolves presence for a batch of user ids in one redis round
// trip for the users this process does not hold locally.
func (r *Registry) OnlineStatus(ctx context.Context, userIDs []string) map[string]bool {
	status := make(map[string]bool, len(userIDs))
	var remote []string

	r.mu.RLock()
	for _, id := range userIDs {
		if _, ok := r.local[id]; ok {
			status[id] = true
		} else {
			status[id] = false
			remote = append(remote, id)
		}
	}
	r.mu.RUnlock()

	if r.redis == nil || len(remote) == 0 {
		return status
	}

	keys := make([]string, len(remote))
	for i, id := range remote {
		keys[i] = keyPrefix + id
	}

	vals, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn().Err(err).Msg("presence: redis batch lookup failed, answering from local map only")
		return status
	}

	for i, v := range vals {
		if v != nil {
			status[remote[i]] = true
		}
	}
	return status
}

// Entry returns the local presence entry for a user, if this process owns it.
func (r *Registry) Entry(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.local[userID]
	return e, ok
}

// LocalCount reports how many users this process currently tracks.
func (r *Registry) LocalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.local)
}

func (r *Registry) String() string {
	return fmt.Sprintf("presence.Registry(local=%d)", r.LocalCount())
}
