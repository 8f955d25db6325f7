package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/urls-node/internal/dbconn"
	"github.com/serroba/urls-node/internal/handlers"
	"github.com/serroba/urls-node/internal/health"
	"github.com/serroba/urls-node/internal/messaging"
	"github.com/serroba/urls-node/internal/middleware"
	"github.com/serroba/urls-node/internal/rotation"
	"github.com/serroba/urls-node/internal/secrets"
	"github.com/serroba/urls-node/internal/shortener"
	"github.com/serroba/urls-node/internal/store"
	"go.uber.org/zap"
)

// LoggerPackage provides the zap logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "console" {
			return zap.NewDevelopment()
		}

		return zap.NewProduction()
	})
}

// SecretsPackage provides the credential resolver for the configured secret source.
func SecretsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (secrets.Source, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.SecretSource == SecretSourceFile {
			return secrets.NewFileSource(opts.SecretFile), nil
		}

		var loadOpts []func(*config.LoadOptions) error
		if opts.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(opts.AWSRegion))
		}

		cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		return secrets.NewSecretsManagerSource(secretsmanager.NewFromConfig(cfg)), nil
	})

	do.Provide(i, func(i *do.Injector) (secrets.Resolver, error) {
		opts := do.MustInvoke[*Options](i)
		source := do.MustInvoke[secrets.Source](i)

		return secrets.NewStoreResolver(source, opts.SecretID), nil
	})
}

// ConnectionPackage provides the process-wide connection cache.
func ConnectionPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*dbconn.Cache, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		resolver := do.MustInvoke[secrets.Resolver](i)

		tlsConfig, err := dbconn.LoadTLSConfig(opts.CABundle, opts.DBHost)
		if err != nil {
			return nil, err
		}

		endpoint := dbconn.Endpoint{
			Scheme:   opts.DBScheme,
			Host:     opts.DBHost,
			Port:     opts.DBPort,
			Database: opts.DBName,
		}

		return dbconn.NewCache(resolver, endpoint, tlsConfig, dbconn.PgxDialer, logger,
			dbconn.WithCloseOnReturn(opts.CloseOnReturn),
		), nil
	})
}

// RedisPackage provides the Redis client. It fails when no address is configured.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis-addr is not configured")
		}

		return redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		}), nil
	})
}

// RepositoryPackage provides the repository factory: Postgres, behind the Redis
// read cache when one is configured.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.RepositoryFactory, error) {
		opts := do.MustInvoke[*Options](i)

		factory := shortener.RepositoryFactory(store.PostgresFactory)
		if opts.RedisAddr == "" || opts.MappingCacheSeconds == 0 {
			return factory, nil
		}

		client := do.MustInvoke[*redis.Client](i)
		ttl := time.Duration(opts.MappingCacheSeconds) * time.Second

		return store.CachedFactory(factory, client, ttl), nil
	})
}

// ServicePackage provides the shortener service.
func ServicePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		gen, err := shortener.NewCodeGenerator(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		return shortener.NewService(
			do.MustInvoke[*dbconn.Cache](i),
			do.MustInvoke[shortener.RepositoryFactory](i),
			gen,
		), nil
	})
}

// RotationPackage provides the credential rotation publisher and consumer
// group over Redis streams. The subscriber has no consumer group, so every
// process receives every event.
func RotationPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapAdapter(logger))
		if err != nil {
			return nil, fmt.Errorf("create rotation publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[rotation.CredentialsRotated], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[rotation.CredentialsRotated](group.Publisher(), rotation.Topic), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)
		cache := do.MustInvoke[*dbconn.Cache](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:       client,
			Unmarshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapAdapter(logger))
		if err != nil {
			return nil, fmt.Errorf("create rotation subscriber: %w", err)
		}

		handler := rotation.NewHandler(opts.SecretID, cache, logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, rotation.Topic, handler.Handle, logger))

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.Recoverer, middleware.CORS, middleware.RequestMeta)
		router.Handle("/metrics", promhttp.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		api := humachi.New(router, handlers.APIConfig())

		service := do.MustInvoke[*shortener.Service](i)
		handlers.RegisterRoutes(api, opts.BasePath, handlers.NewURLHandler(service, opts.ShortURLScheme, logger))

		checkers := map[string]health.Checker{
			"database": health.NewDatabaseChecker(do.MustInvoke[*dbconn.Cache](i)),
		}
		if opts.RedisAddr != "" {
			checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
		}

		health.RegisterRoutes(api, health.NewHandler(checkers))

		return api, nil
	})
}

// Register provides options and every package of the service.
func Register(i *do.Injector, options *Options) {
	do.ProvideValue(i, options)
	LoggerPackage(i)
	SecretsPackage(i)
	ConnectionPackage(i)
	RedisPackage(i)
	RepositoryPackage(i)
	ServicePackage(i)
	RotationPackage(i)
	HTTPPackage(i)
}

// Shutdown stops every started service and closes the Redis client when one is configured.
func Shutdown(i *do.Injector) error {
	var client *redis.Client

	if opts, err := do.Invoke[*Options](i); err == nil && opts.RedisAddr != "" {
		client, _ = do.Invoke[*redis.Client](i)
	}

	err := i.Shutdown()

	if client != nil {
		err = errors.Join(err, client.Close())
	}

	return err
}
