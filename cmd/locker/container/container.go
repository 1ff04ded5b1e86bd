package container

import (
	"context"
	"fmt"

	"github.com/alibi/locker/cmd/locker/handlers"
	"github.com/alibi/locker/cmd/locker/repository"
	"github.com/alibi/locker/cmd/locker/service"
	"github.com/alibi/locker/common/bootstrap"
	"github.com/alibi/locker/common/config"
	"github.com/alibi/locker/common/ratelimit"
	"github.com/alibi/locker/common/storage"
	"github.com/redis/go-redis/v9"
)

// Container holds all initialized services and repositories. Everything
// here is constructed once at startup and read-only afterwards.
type Container struct {
	Components *bootstrap.Components

	// Storage backend (exactly one, selected by configuration)
	Store storage.ObjectStore

	// Repositories
	EvidenceRepo *repository.EvidenceRepository

	// Services
	EvidenceService *service.EvidenceService

	// Handlers
	EvidenceHandler *handlers.EvidenceHandler
	FileHandler     *handlers.FileHandler // nil unless filesystem backend

	// Rate limiting (nil when disabled)
	RateLimiter *ratelimit.RateLimiter
}

// NewContainer initializes all services and repositories once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	// Object store backend, injected into the service rather than held
	// as a process-global.
	store, err := newObjectStore(ctx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	evidenceRepo := repository.NewEvidenceRepository(components.DB)
	evidenceService := service.NewEvidenceService(evidenceRepo, store, log)
	evidenceHandler := handlers.NewEvidenceHandler(evidenceService, log)

	c := &Container{
		Components:      components,
		Store:           store,
		EvidenceRepo:    evidenceRepo,
		EvidenceService: evidenceService,
		EvidenceHandler: evidenceHandler,
	}

	// Locators from the filesystem backend point at the file-serving
	// endpoint, so it only exists for that backend.
	if cfg.Storage.Backend == config.BackendFilesystem {
		c.FileHandler = handlers.NewFileHandler(store, log)
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.RateLimiter = ratelimit.NewRateLimiter(redisClient, log)
		log.Info("rate limiting enabled",
			"limit", cfg.RateLimit.UploadLimit,
			"window_sec", cfg.RateLimit.WindowSec)
	}

	return c, nil
}

// newObjectStore builds the configured storage backend. A failure here is
// fatal for the s3 backend; the filesystem backend degrades to its
// fallback directory before giving up.
func newObjectStore(ctx context.Context, cfg *config.Config, components *bootstrap.Components) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendFilesystem:
		return storage.NewFilesystemStore(cfg.Storage.UploadDir, cfg.Storage.FallbackDir, components.Logger)
	case config.BackendS3:
		return storage.NewS3Store(ctx, cfg.Storage, components.Logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
