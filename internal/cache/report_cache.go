package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache holds rendered report payloads for a short time
type ReportCache interface {
	// Get decodes a cached report into out and reports whether it was found
	Get(ctx context.Context, surveyID, kind string, params []string, out interface{}) (bool, error)
	Set(ctx context.Context, surveyID, kind string, params []string, report interface{}) error
	// Invalidate drops every cached report of the survey
	Invalidate(ctx context.Context, surveyID string) error
	Enabled() bool
}

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a new report cache. A zero ttl disables it.
func NewReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	return &reportCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *reportCache) key(surveyID, kind string, params []string) string {
	sum := sha1.Sum([]byte(strings.Join(params, "\x1f")))
	return fmt.Sprintf("report:%s:%s:%s", surveyID, kind, hex.EncodeToString(sum[:8]))
}

func (c *reportCache) Enabled() bool {
	return c.client != nil && c.ttl > 0
}

func (c *reportCache) Get(ctx context.Context, surveyID, kind string, params []string, out interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, c.key(surveyID, kind, params)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *reportCache) Set(ctx context.Context, surveyID, kind string, params []string, report interface{}) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(surveyID, kind, params), data, c.ttl).Err()
}

func (c *reportCache) Invalidate(ctx context.Context, surveyID string) error {
	if !c.Enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("report:%s:*", surveyID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
