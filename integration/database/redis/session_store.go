package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/lifevault/core/session"
)

// updateSessionScript rewrites a session only while its ID index exists, dropping the
// previous token key when the token rotated.
// KEYS: id key, new token key. ARGV: new token, payload, ttl ms, token key prefix.
var updateSessionScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
if not prev then
	return 0
end
if prev ~= ARGV[1] then
	redis.call('DEL', ARGV[4] .. prev)
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// SessionStore keeps sessions as JSON under their token with a reverse index from session ID.
// Both keys expire with the session, so DeleteExpired has nothing to do.
type SessionStore[Data any] struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a store whose keys start with prefix + "session:".
func NewSessionStore[Data any](client redis.UniversalClient, prefix string) *SessionStore[Data] {
	return &SessionStore[Data]{client: client, prefix: prefix + "session:"}
}

func (s *SessionStore[Data]) tokenKey(token string) string { return s.prefix + "token:" + token }
func (s *SessionStore[Data]) idKey(id uuid.UUID) string    { return s.prefix + "id:" + id.String() }

func (s *SessionStore[Data]) GetByToken(ctx context.Context, token string) (*session.Session[Data], error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess session.Session[Data]
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return &sess, nil
}

func (s *SessionStore[Data]) Save(ctx context.Context, sess *session.Session[Data]) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return session.ErrExpired
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	prev, err := s.client.Get(ctx, s.idKey(sess.ID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if prev != "" && prev != sess.Token {
			p.Del(ctx, s.tokenKey(prev))
		}
		p.Set(ctx, s.tokenKey(sess.Token), raw, ttl)
		p.Set(ctx, s.idKey(sess.ID), sess.Token, ttl)
		return nil
	})
	return err
}

func (s *SessionStore[Data]) Update(ctx context.Context, sess *session.Session[Data]) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return session.ErrExpired
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ok, err := updateSessionScript.Run(ctx, s.client,
		[]string{s.idKey(sess.ID), s.tokenKey(sess.Token)},
		sess.Token, raw, ttl.Milliseconds(), s.prefix+"token:",
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *SessionStore[Data]) Delete(ctx context.Context, id uuid.UUID) error {
	token, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return session.ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.client.Del(ctx, s.idKey(id), s.tokenKey(token)).Err()
}

func (s *SessionStore[Data]) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
