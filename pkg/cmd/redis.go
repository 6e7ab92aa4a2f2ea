// Package cmd provides common initialization functions for the weft
// binaries.
package cmd

import (
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(redisURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return redis.NewClient(opts), nil
}
