package di

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticketdesk/cmd/ticketdesk/infrastructure"
	"ticketdesk/internal/adapter/store"
	redisstore "ticketdesk/internal/adapter/store/redis"
	sqlitestore "ticketdesk/internal/adapter/store/sqlite"
	"ticketdesk/internal/cache"
	"ticketdesk/internal/config"
	"ticketdesk/internal/session"
	"ticketdesk/internal/usecase/auth"
	ticketuc "ticketdesk/internal/usecase/ticket"
	"ticketdesk/pkg/latency"
	redisclient "ticketdesk/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      store.Store
	Partitions *cache.Partitions
	Sessions   *session.Manager
	Auth       *auth.Service
	Tickets    *ticketuc.Service

	sqliteStore *sqlitestore.Store
	redisClient *redisclient.Client
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	switch cfg.Store.Backend {
	case "redis":
		rdb, err := infrastructure.NewRedisClient(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.redisClient = rdb
		c.Store = redisstore.New(rdb.Client, l)
	default:
		s, err := infrastructure.NewSQLiteStore(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		c.sqliteStore = s
		c.Store = s
	}

	delay := latency.Fixed(time.Duration(cfg.App.LatencyMillis) * time.Millisecond)

	c.Partitions = cache.New(c.Store, l)
	c.Sessions = session.NewManager(c.Store, c.Partitions, l)
	c.Auth = auth.New(l, delay)
	if cfg.App.SeedEmail != "" {
		c.Auth.Seed(cfg.App.SeedName, cfg.App.SeedEmail, cfg.App.SeedPassword)
	}
	c.Tickets = ticketuc.New(c.Sessions, c.Partitions, delay, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}
	if c.sqliteStore != nil {
		if err := c.sqliteStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sqlite store: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}
	return nil
}
