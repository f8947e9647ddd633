package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/lifevault/core/verification"
)

// consumeScript deletes the record only when it still holds the expected code.
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code') == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

// VerificationStore keeps verification codes in Redis hashes that expire with their retention.
type VerificationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewVerificationStore creates a store whose keys start with prefix + "verification:".
func NewVerificationStore(client redis.UniversalClient, prefix string) *VerificationStore {
	return &VerificationStore{client: client, prefix: prefix + "verification:"}
}

func (s *VerificationStore) Save(ctx context.Context, key string, rec verification.Record, retention time.Duration) error {
	k := s.prefix + key
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, "code", rec.Code, "issued_at", rec.IssuedAt.UnixNano())
		p.PExpire(ctx, k, retention)
		return nil
	})
	return err
}

func (s *VerificationStore) Get(ctx context.Context, key string) (verification.Record, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return verification.Record{}, err
	}
	code, ok := vals["code"]
	if !ok {
		return verification.Record{}, verification.ErrNotFound
	}
	issued, err := strconv.ParseInt(vals["issued_at"], 10, 64)
	if err != nil {
		return verification.Record{}, errors.Join(ErrCorruptRecord, err)
	}
	return verification.Record{Code: code, IssuedAt: time.Unix(0, issued)}, nil
}

func (s *VerificationStore) Consume(ctx context.Context, key, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *VerificationStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
