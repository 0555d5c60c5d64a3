// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"orchid/config"

	"github.com/go-redis/redis/v8"
)

// SessionStoreClient is the dedicated client for the durable session key-value store.
var SessionStoreClient *redis.Client

// InitSessionStore initializes the Redis client backing the durable session store
// (using DB from AppConfig reserved for session state).
func InitSessionStore() {
	SessionStoreClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := SessionStoreClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Session Store): %v", err)
	}
}

// GetSessionStoreClient returns the Redis client for the durable session store.
func GetSessionStoreClient() *redis.Client {
	if SessionStoreClient == nil {
		InitSessionStore()
	}
	return SessionStoreClient
}
