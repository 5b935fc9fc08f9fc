package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stageKeyPrefix = "bulk_upload_"

// Stage holds validated rows between the validate and commit steps.
type Stage interface {
	Put(ctx context.Context, id string, rows []Row, ttl time.Duration) error
	// Take returns and removes the staged rows; ErrUnknownUpload when absent.
	Take(ctx context.Context, id string) ([]Row, error)
}

// RedisStage keeps staged uploads in Redis under an expiring key
type RedisStage struct {
	client redis.UniversalClient
}

// NewRedisStage initializes a Redis backed stage
func NewRedisStage(client redis.UniversalClient) *RedisStage {
	return &RedisStage{client: client}
}

func (s *RedisStage) Put(ctx context.Context, id string, rows []Row, ttl time.Duration) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode staged rows: %w", err)
	}
	if err := s.client.Set(ctx, stageKeyPrefix+id, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to stage upload: %w", err)
	}
	return nil
}

func (s *RedisStage) Take(ctx context.Context, id string) ([]Row, error) {
	payload, err := s.client.GetDel(ctx, stageKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownUpload
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load staged upload: %w", err)
	}
	var rows []Row
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode staged rows: %w", err)
	}
	return rows, nil
}
