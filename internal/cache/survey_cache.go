package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldsurvey/internal/model"
)

// SurveyCache holds survey resolutions keyed by the raw reference
type SurveyCache interface {
	Get(ctx context.Context, ref string) (*model.ResolvedSurvey, error)
	Set(ctx context.Context, ref string, resolved *model.ResolvedSurvey) error
}

type surveyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSurveyCache creates a new survey cache. Surveys change rarely, so a
// resolution lives for ttl before it is looked up again.
func NewSurveyCache(client *redis.Client, ttl time.Duration) SurveyCache {
	return &surveyCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *surveyCache) key(ref string) string {
	return fmt.Sprintf("survey:ref:%s", ref)
}

func (c *surveyCache) Get(ctx context.Context, ref string) (*model.ResolvedSurvey, error) {
	data, err := c.client.Get(ctx, c.key(ref)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resolved model.ResolvedSurvey
	if err := json.Unmarshal(data, &resolved); err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (c *surveyCache) Set(ctx context.Context, ref string, resolved *model.ResolvedSurvey) error {
	if !resolved.Found() {
		return nil
	}
	data, err := json.Marshal(resolved)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(ref), data, c.ttl).Err()
}
