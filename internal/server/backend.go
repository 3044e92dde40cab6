package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjudge-oj/runlog/config"
	"github.com/jjudge-oj/runlog/internal/db"
	"github.com/jjudge-oj/runlog/internal/mq"
	"github.com/jjudge-oj/runlog/internal/services"
	"github.com/jjudge-oj/runlog/internal/storage"
	"github.com/jjudge-oj/runlog/internal/store"
	redis "github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// OpenBackend builds the store backend selected by cfg.Store.Backend.
// The returned close function is never nil.
func OpenBackend(ctx context.Context, cfg config.Config) (store.Backend, func() error, error) {
	noop := func() error { return nil }
	key := strings.TrimSpace(cfg.Store.Key)

	switch cfg.Store.Backend {
	case "", config.StoreBackendFile:
		if strings.TrimSpace(cfg.Store.DataFile) == "" {
			return nil, noop, errors.New("data file path is required")
		}
		return store.NewFileBackend(cfg.Store.DataFile), noop, nil

	case config.StoreBackendMemory:
		return store.NewMemoryBackend(), noop, nil

	case config.StoreBackendPostgres:
		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		return store.NewPostgresBackend(dbConn, key), dbConn.Close, nil

	case config.StoreBackendMinio:
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, noop, fmt.Errorf("open minio: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, noop, fmt.Errorf("ensure minio bucket: %w", err)
		}
		return store.NewObjectBackend(client, key, config.StoreBackendMinio), noop, nil

	case config.StoreBackendGCS:
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, noop, fmt.Errorf("open gcs: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ensure gcs bucket: %w", err)
		}
		return store.NewObjectBackend(client, key, config.StoreBackendGCS), client.Close, nil

	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return store.NewRedisBackend(client, key), client.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenPublisher builds the code run event publisher selected by
// cfg.MQ.Backend. It returns a nil publisher when events are disabled.
func OpenPublisher(ctx context.Context, cfg config.Config) (services.EventPublisher, func() error, error) {
	noop := func() error { return nil }

	if cfg.MQ.Backend == "" || cfg.MQ.Backend == config.MQBackendNone {
		return nil, noop, nil
	}
	queue, err := OpenQueue(ctx, cfg.MQ)
	if err != nil {
		return nil, noop, err
	}
	return queue, queue.Close, nil
}

// OpenQueue connects to the message broker selected by cfg.Backend and
// binds it to cfg.Topic.
func OpenQueue(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	var backend mq.Backend
	switch cfg.Backend {
	case config.MQBackendRabbitMQ:
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("open rabbitmq: %w", err)
		}
		backend = client
	case config.MQBackendPubSub:
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("open pubsub: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}

	queue, err := mq.New(backend, cfg.Topic)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return queue, nil
}
