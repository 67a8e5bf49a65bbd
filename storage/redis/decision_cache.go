package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/open-rails/coursekit/access"
)

// DecisionCache caches resolved access decisions per (school, user, lesson).
// It is advisory: errors and misses both mean "recompute". The reconciler
// invalidates a user's keys after any subscription state change.
type DecisionCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewDecisionCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *DecisionCache {
	if keyPrefix == "" {
		keyPrefix = "coursekit:access:decision:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DecisionCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (c *DecisionCache) userNS(schoolID, userID uuid.UUID) string {
	return c.keyNS + schoolID.String() + ":" + userID.String() + ":"
}

func (c *DecisionCache) key(schoolID, userID, lessonID uuid.UUID) string {
	return c.userNS(schoolID, userID) + lessonID.String()
}

func (c *DecisionCache) Put(ctx context.Context, schoolID, userID, lessonID uuid.UUID, d access.Decision) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(schoolID, userID, lessonID), b, c.ttl).Err()
}

func (c *DecisionCache) Get(ctx context.Context, schoolID, userID, lessonID uuid.UUID) (access.Decision, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(schoolID, userID, lessonID)).Bytes()
	if err == redis.Nil {
		return access.Decision{}, false, nil
	}
	if err != nil {
		return access.Decision{}, false, err
	}
	var d access.Decision
	if err := json.Unmarshal(val, &d); err != nil {
		return access.Decision{}, false, err
	}
	return d, true, nil
}

// InvalidateUser drops every cached decision for one user in one school.
func (c *DecisionCache) InvalidateUser(ctx context.Context, schoolID, userID uuid.UUID) error {
	iter := c.rdb.Scan(ctx, 0, c.userNS(schoolID, userID)+"*", 100).Iterator()
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
	return c.rdb.Del(ctx, keys...).Err()
}
