package cache

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"
)

// limiterDatabase keeps limiter counters apart from cached statistics.
const limiterDatabase = 1

// NewFiberStorage returns a Redis backed fiber.Storage for middleware that
// keeps state across replicas, such as the limiter. It returns nil for the
// memory driver, which makes fiber fall back to its in-process store.
func NewFiberStorage(cfg Config) fiber.Storage {
	if cfg.Driver != "redis" {
		return nil
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
