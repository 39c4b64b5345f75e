package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetCodeStore keeps password-reset codes in redis under a TTL so that
// restarts and multi-instance deployments keep in-flight resets alive.
type ResetCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResetCodeStore(client *redis.Client, ttl time.Duration) *ResetCodeStore {
	return &ResetCodeStore{client: client, ttl: ttl}
}

func resetKey(email string) string {
	return "pwreset:" + email
}

func (s *ResetCodeStore) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := s.client.Set(ctx, resetKey(email), code, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Consume validates and burns the code in one step; a matching code can be
// used at most once.
func (s *ResetCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, resetKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.client.Del(ctx, resetKey(email)).Err(); err != nil {
		return false, err
	}
	return true, nil
}
