package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// GuardPending marks a claimed fingerprint whose response is not stored yet
const GuardPending = "pending"

// SubmissionGuard claims submission fingerprints so concurrent identical
// submissions cannot both be inserted
type SubmissionGuard interface {
	// Claim returns true when the caller now owns the fingerprint
	Claim(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
	// Bind records the stored response id for a claimed fingerprint
	Bind(ctx context.Context, fingerprint, responseID string, ttl time.Duration) error
	// Lookup returns GuardPending, a response id, or "" when unclaimed
	Lookup(ctx context.Context, fingerprint string) (string, error)
	Release(ctx context.Context, fingerprint string) error
}

type submissionGuard struct {
	client *redis.Client
}

// NewSubmissionGuard creates a new submission guard
func NewSubmissionGuard(client *redis.Client) SubmissionGuard {
	return &submissionGuard{client: client}
}

func (g *submissionGuard) key(fingerprint string) string {
	return fmt.Sprintf("submission:%s", fingerprint)
}

func (g *submissionGuard) Claim(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.key(fingerprint), GuardPending, ttl).Result()
}

func (g *submissionGuard) Bind(ctx context.Context, fingerprint, responseID string, ttl time.Duration) error {
	return g.client.Set(ctx, g.key(fingerprint), responseID, ttl).Err()
}

func (g *submissionGuard) Lookup(ctx context.Context, fingerprint string) (string, error) {
	val, err := g.client.Get(ctx, g.key(fingerprint)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (g *submissionGuard) Release(ctx context.Context, fingerprint string) error {
	return g.client.Del(ctx, g.key(fingerprint)).Err()
}
