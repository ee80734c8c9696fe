package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/vaultlink/internal/config"
	"github.com/serroba/vaultlink/internal/expiry"
	"github.com/serroba/vaultlink/internal/handlers"
	"github.com/serroba/vaultlink/internal/health"
	"github.com/serroba/vaultlink/internal/messaging"
	"github.com/serroba/vaultlink/internal/middleware"
	"github.com/serroba/vaultlink/internal/shortener"
	"github.com/serroba/vaultlink/internal/store"
	"github.com/serroba/vaultlink/internal/urlcrypt"
	"go.uber.org/zap"
)

const (
	TransportDirect = "direct"
	TransportRedis  = "redis"

	// ExpiryConsumerGroup is the Redis stream consumer group of cmd/consumer.
	ExpiryConsumerGroup = "expiry"
)

type Options struct {
	Port             int    `default:"8888"    doc:"Port to listen on"                                   short:"p"`
	CodeLength       int    `default:"6"       doc:"Length of generated short codes (5..16)"              short:"c"`
	DatabaseURL      string `doc:"PostgreSQL connection string"`
	CryptoKey        string `doc:"Hex-encoded 32-byte URL encryption key"`
	Host             string `doc:"Public host name used for expiry redirects"`
	PoolSize         int    `default:"5"       doc:"Maximum PostgreSQL connections"`
	AcquireTimeout   int    `default:"30"      doc:"Seconds to wait for a pooled connection"`
	RedisAddr        string `default:""        doc:"Redis server address, empty disables Redis"          short:"r"`
	CacheTTL         int    `default:"0"       doc:"Seconds to cache records in Redis, 0 disables"`
	ExpiryTransport  string `default:"direct"  doc:"How expiry events are delivered: direct or redis"`
	StrictEncryption bool   `default:"false"   doc:"Fail shorten requests when encryption fails"`
	LogFormat        string `default:"console" doc:"Log format: console or json"`
	Migrate          bool   `default:"true"    doc:"Apply the database schema on start"`
}

func (o *Options) redisEnabled() bool {
	return strings.TrimSpace(o.RedisAddr) != ""
}

// RedisConn ties the Redis client to the injector lifecycle.
type RedisConn struct {
	*redis.Client
}

func (c *RedisConn) Shutdown() error {
	return c.Close()
}

func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		switch options.LogFormat {
		case "json":
			return zap.NewProduction()
		case "console", "":
			return zap.NewDevelopment()
		default:
			return nil, fmt.Errorf("unknown log format %q", options.LogFormat)
		}
	})
}

func SecretsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*config.Secrets, error) {
		options := do.MustInvoke[*Options](i)

		return config.Load(options.DatabaseURL, options.CryptoKey, options.Host)
	})
}

func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.PostgresStore, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		secrets, err := do.Invoke[*config.Secrets](i)
		if err != nil {
			return nil, err
		}

		poolConfig, err := pgxpool.ParseConfig(secrets.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}

		if options.PoolSize > 0 {
			poolConfig.MaxConns = int32(options.PoolSize)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}

		if options.Migrate {
			if err := store.Migrate(ctx, pool); err != nil {
				pool.Close()

				return nil, err
			}

			logger.Info("schema applied")
		}

		logger.Info("postgres pool ready", zap.Int32("max_conns", poolConfig.MaxConns))

		return store.NewPostgresStore(pool, time.Duration(options.AcquireTimeout)*time.Second), nil
	})
}

func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisConn, error) {
		options := do.MustInvoke[*Options](i)
		if !options.redisEnabled() {
			return nil, fmt.Errorf("redis is disabled: set redis-addr")
		}

		client := redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		})

		return &RedisConn{Client: client}, nil
	})
}

func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		pg, err := do.Invoke[*store.PostgresStore](i)
		if err != nil {
			return nil, err
		}

		if options.CacheTTL <= 0 {
			return pg, nil
		}

		if !options.redisEnabled() {
			logger.Warn("cache ttl set without redis, caching disabled")

			return pg, nil
		}

		conn := do.MustInvoke[*RedisConn](i)
		ttl := time.Duration(options.CacheTTL) * time.Second

		return store.NewRedisCacheRepository(pg, conn.Client, ttl, logger), nil
	})
}

func CryptoPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*urlcrypt.Codec, error) {
		secrets, err := do.Invoke[*config.Secrets](i)
		if err != nil {
			return nil, err
		}

		return urlcrypt.New(secrets.CryptoKey)
	})
}

func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		generate, err := shortener.NewCodeGenerator(options.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("code generator: %w", err)
		}

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		codec, err := do.Invoke[*urlcrypt.Codec](i)
		if err != nil {
			return nil, err
		}

		return shortener.NewService(repo, generate, codec, shortener.ServiceConfig{
			MaxAttempts:      shortener.DefaultMaxAttempts,
			StrictEncryption: options.StrictEncryption,
		}, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortener.Resolver, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		codec, err := do.Invoke[*urlcrypt.Codec](i)
		if err != nil {
			return nil, err
		}

		secrets, err := do.Invoke[*config.Secrets](i)
		if err != nil {
			return nil, err
		}

		publish, err := do.Invoke[messaging.Publish[shortener.ExpiredEvent]](i)
		if err != nil {
			return nil, err
		}

		return shortener.NewResolver(repo, codec, shortener.ExpireFunc(publish), secrets.Host, logger), nil
	})
}

// ExpiryPackage provides the publish function the redirect path uses to expire lapsed links.
func ExpiryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		conn, err := do.Invoke[*RedisConn](i)
		if err != nil {
			return nil, err
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: conn.Client,
		}, messaging.NewZapLoggerAdapter(logger))
		if err != nil {
			return nil, fmt.Errorf("redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[shortener.ExpiredEvent], error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch options.ExpiryTransport {
		case TransportDirect, "":
			repo, err := do.Invoke[shortener.Repository](i)
			if err != nil {
				return nil, err
			}

			return messaging.NewAsyncPublishFunc(
				shortener.TopicURLExpired,
				expiry.NewHandler(repo, logger),
				messaging.DefaultDispatchTimeout,
				logger,
			), nil
		case TransportRedis:
			group, err := do.Invoke[*messaging.PublisherGroup](i)
			if err != nil {
				return nil, err
			}

			return messaging.NewPublishFunc[shortener.ExpiredEvent](group.Publisher(), shortener.TopicURLExpired), nil
		default:
			return nil, fmt.Errorf("unknown expiry transport %q", options.ExpiryTransport)
		}
	})
}

func HealthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*health.Handler, error) {
		options := do.MustInvoke[*Options](i)

		pg, err := do.Invoke[*store.PostgresStore](i)
		if err != nil {
			return nil, err
		}

		checkers := map[string]health.Checker{"postgres": pg}

		if options.redisEnabled() {
			conn := do.MustInvoke[*RedisConn](i)
			checkers["redis"] = health.NewRedisChecker(conn.Client)
		}

		return health.NewHandler(checkers), nil
	})
}

func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		resolver, err := do.Invoke[*shortener.Resolver](i)
		if err != nil {
			return nil, err
		}

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		healthHandler, err := do.Invoke[*health.Handler](i)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("VaultLink", "1.0.0"))
		api.UseMiddleware(middleware.AccessLog(logger))

		health.RegisterRoutes(api, healthHandler)
		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, resolver, repo, logger))

		return api, nil
	})
}

// ConsumerGroupPackage provides the Redis stream consumers run by cmd/consumer.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		conn, err := do.Invoke[*RedisConn](i)
		if err != nil {
			return nil, err
		}

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        conn.Client,
			ConsumerGroup: ExpiryConsumerGroup,
		}, messaging.NewZapLoggerAdapter(logger))
		if err != nil {
			return nil, fmt.Errorf("redis stream subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			shortener.TopicURLExpired,
			expiry.NewHandler(repo, logger),
			logger,
		))

		return group, nil
	})
}
