// Package ratelimit throttles client actions with Redis INCR + EXPIRE
// fixed windows. Sends, conversation opens, and moderation calls are
// limited per account; connection attempts per IP.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is one throttling policy: key prefix, allowance, window.
type Rule struct {
	Key    string // Redis key prefix (e.g., "rl:msg:", "rl:open:")
	Limit  int
	Window time.Duration
}

var (
	// RuleMessage allows 5 message sends per 10 seconds per account.
	RuleMessage = Rule{Key: "rl:msg:", Limit: 5, Window: 10 * time.Second}

	// RuleOpen allows 10 conversation opens per minute per account.
	RuleOpen = Rule{Key: "rl:open:", Limit: 10, Window: 1 * time.Minute}

	// RuleModeration allows 30 ban/unban operations per minute per staff
	// account, a backstop against runaway admin tooling.
	RuleModeration = Rule{Key: "rl:mod:", Limit: 30, Window: 1 * time.Minute}

	// RuleConnect allows 5 WebSocket connections per minute per IP.
	RuleConnect = Rule{Key: "rl:conn:", Limit: 5, Window: 1 * time.Minute}
)

// Limiter evaluates rules against shared Redis counters, so the limits
// hold across server instances.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow records one action for the identifier under the rule and reports
// whether it stayed within the limit. A Redis failure fails open: an
// outage must not freeze legitimate traffic, and the error is still
// returned for callers that want to log it.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[ratelimit] redis INCR error key=%s: %v (failing open)", key, err)
		return true, err
	}

	// First hit in a window starts its clock.
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Printf("[ratelimit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			// Without a TTL the counter would never reset; best effort
			// delete so the identifier isn't throttled forever.
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= rule.Limit, nil
}
