package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// SessionIDCookie names the cookie holding the Redis key suffix.
const SessionIDCookie = "oauth_sid"

const redisKeyPrefix = "oauth_state:"

// RedisStateStore keeps the state server-side. The browser holds only a
// random session id; GETDEL makes reading and deleting one atomic step, so
// two concurrent callbacks cannot both consume the same state.
type RedisStateStore struct {
	client redis.UniversalClient
	secure bool
}

var _ StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(client redis.UniversalClient, secure bool) *RedisStateStore {
	return &RedisStateStore{client: client, secure: secure}
}

func (s *RedisStateStore) Save(ctx context.Context, w http.ResponseWriter, _ *http.Request, state string) error {
	sid := xid.New().String()
	if err := s.client.Set(ctx, redisKeyPrefix+sid, state, StateTTL).Err(); err != nil {
		return fmt.Errorf("session: persist state: %w", err)
	}
	setCookie(w, SessionIDCookie, sid, s.secure)
	return nil
}

func (s *RedisStateStore) Take(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionIDCookie)
	if err != nil || cookie.Value == "" {
		return "", nil
	}
	expireCookie(w, SessionIDCookie, s.secure)

	state, err := s.client.GetDel(ctx, redisKeyPrefix+cookie.Value).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("session: load state: %w", err)
	}
	return state, nil
}
