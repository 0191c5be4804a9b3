// Package redisrelay optionally broadcasts SessionEvents onto a Redis
// channel so a second process (or a restarted one) can observe session
// lifecycle activity. It is a secondary relay: the in-process events.Bus
// remains the primary, synchronous delivery mechanism.
package redisrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentbridge/bridge/internal/events"
)

// Relay publishes a JSON envelope for every event it observes to a
// per-session Redis channel, grounded in the teacher's own
// "agent:"+sessionID channel-naming convention.
type Relay struct {
	client *redis.Client
}

// New connects to Redis and verifies connectivity with a ping.
func New(ctx context.Context, addr, password string, db int) (*Relay, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisrelay.New: %w", err)
	}
	return &Relay{client: client}, nil
}

func (r *Relay) Close() error { return r.client.Close() }

func channel(sessionID string) string { return "session:" + sessionID }

type envelope struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler returns an events.Handler suitable for events.Bus.Subscribe. It
// never blocks the publishing goroutine for more than a few seconds and
// never returns an error to the caller: marshal and publish failures are
// dropped silently, not logged and not surfaced into the session lifecycle.
func (r *Relay) Handler() events.Handler {
	return func(evt events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(envelope{
			Kind:      string(evt.Kind()),
			SessionID: evt.SessionID(),
			Timestamp: evt.Timestamp(),
		})
		if err != nil {
			return
		}
		_ = r.client.Publish(ctx, channel(evt.SessionID()), payload).Err()
	}
}
