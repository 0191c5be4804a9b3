// Package redismirror optionally persists the Boss Agent's taskId->issueId
// mapping to Redis so it survives a process restart.
package redismirror

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttl = 48 * time.Hour

// Mirror implements bossagent.Mirror.
type Mirror struct {
	client *redis.Client
}

// New connects to Redis and verifies connectivity with a ping.
func New(ctx context.Context, addr, password string, db int) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redismirror.New: %w", err)
	}
	return &Mirror{client: client}, nil
}

func (m *Mirror) Close() error { return m.client.Close() }

func key(taskID string) string { return "bossagent:task:" + taskID }

// Set records the mapping with a bounded TTL; a delegation that outlives
// the TTL has already exceeded any sane hard timeout.
func (m *Mirror) Set(ctx context.Context, taskID, issueID string) error {
	if err := m.client.Set(ctx, key(taskID), issueID, ttl).Err(); err != nil {
		return fmt.Errorf("redismirror.Mirror.Set: %w", err)
	}
	return nil
}

// Get returns the issue id mapped to taskID, or "" if absent.
func (m *Mirror) Get(ctx context.Context, taskID string) (string, error) {
	issueID, err := m.client.Get(ctx, key(taskID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redismirror.Mirror.Get: %w", err)
	}
	return issueID, nil
}
