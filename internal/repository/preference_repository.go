package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

// PreferenceRepository keeps per-user settings in Redis so they survive
// restarts and are shared across server instances. Currently the only
// preference is the active environment.
type PreferenceRepository struct {
	client *redis.Client
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(client *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{client: client}
}

func environmentKey(userID string) string {
	return "pref:environment:" + userID
}

// GetEnvironment returns the user's active environment, or ErrCacheMiss when
// none has been selected yet.
func (r *PreferenceRepository) GetEnvironment(ctx context.Context, userID string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrCacheMiss
	}
	value, err := r.client.Get(ctx, environmentKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("get environment preference: %w", err)
	}
	return value, nil
}

// SetEnvironment stores the user's active environment. No TTL: the selection
// sticks until changed.
func (r *PreferenceRepository) SetEnvironment(ctx context.Context, userID, environment string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, environmentKey(userID), environment, 0).Err(); err != nil {
		return fmt.Errorf("set environment preference: %w", err)
	}
	return nil
}
