package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

// PrefixSession namespaces session keys.
const PrefixSession = "session:"

// NewClient connects to redis and pings it. An unreachable server yields a *core.ConnectivityError.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Address(),
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.NewConnectivityError(errors.Wrap(err, "pinging redis"))
	}
	return client, nil
}

// SessionStore keeps sessions in redis as JSON, expiring them after ttl (0: never).
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ session.Store = (*SessionStore)(nil) // interface compliance check

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (st *SessionStore) Save(ctx context.Context, s *session.Session) error {
	b, err := json.Marshal(s.Data())
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = st.client.Set(ctx, PrefixSession+s.ID(), b, st.ttl).Err(); err != nil {
		return core.NewConnectivityError(errors.Wrap(err, "saving session"))
	}
	return nil
}

func (st *SessionStore) Load(ctx context.Context, id string) (*session.Session, error) {
	b, err := st.client.Get(ctx, PrefixSession+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, core.NewConnectivityError(errors.Wrap(err, "loading session"))
	}
	var d session.Data
	if err = json.Unmarshal(b, &d); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	return session.Restore(d), nil
}

func (st *SessionStore) Delete(ctx context.Context, id string) error {
	if err := st.client.Del(ctx, PrefixSession+id).Err(); err != nil {
		return core.NewConnectivityError(errors.Wrap(err, "deleting session"))
	}
	return nil
}
