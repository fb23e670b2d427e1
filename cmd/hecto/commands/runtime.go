package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/hecto/internal/config"
	"github.com/dyluth/hecto/internal/duel"
	"github.com/dyluth/hecto/internal/puzzle"
	"github.com/dyluth/hecto/internal/scoring"
	"github.com/dyluth/hecto/internal/server"
	"github.com/dyluth/hecto/internal/storage"
	"github.com/dyluth/hecto/pkg/channel"
)

// monitorInterval is how often the broker re-checks Redis.
const monitorInterval = 5 * time.Second

// runtime is the wired service graph behind `hecto serve`. The transport is
// chosen here and injected; nothing downstream knows which one it got.
type runtime struct {
	db        *storage.DB
	transport channel.Transport
	rdb       *redis.Client // store client when the transport is not the broker
	service   *duel.Service
	server    *server.Server
}

// buildRuntime wires storage, transport, match store, generator, ratings,
// duel service and HTTP server from cfg. Broker health monitoring runs until
// ctx is cancelled.
func buildRuntime(ctx context.Context, cfg *config.HectoConfig, logger *slog.Logger) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.db, err = storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	var broker *channel.Broker
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		broker, err = channel.NewBrokerFromURL(cfg.Transport.RedisURL,
			channel.WithBrokerLogger(logger.With("component", "broker")))
		if err != nil {
			return nil, err
		}
		rt.transport = broker
		if err = broker.Connect(ctx); err != nil {
			return nil, err
		}
		go broker.Monitor(ctx, monitorInterval)
	default:
		var opts []channel.MockOption
		if cfg.Transport.MockDelay != nil {
			opts = append(opts, channel.WithDelay(*cfg.Transport.MockDelay))
		}
		rt.transport = channel.NewMock(opts...)
	}

	store, err := rt.buildStore(cfg, broker)
	if err != nil {
		return nil, err
	}

	solver := puzzle.NewSolver(
		puzzle.WithMaxNodes(cfg.Puzzle.MaxNodes),
		puzzle.WithSearchTimeout(cfg.Puzzle.SearchTimeout),
	)
	gen := puzzle.NewGenerator(solver,
		puzzle.WithMaxAttempts(cfg.Puzzle.MaxAttempts),
		puzzle.WithLogger(logger),
	)

	rt.service = duel.NewService(store, rt.transport, gen,
		duel.WithRecorder(scoring.NewRatings(rt.db.Profiles(), logger)),
		duel.WithLogger(logger),
		duel.WithNamespace(cfg.Transport.Namespace),
		duel.WithCountdown(cfg.Duel.Countdown),
		duel.WithDisconnectTimeout(disconnectTimeout(cfg)),
	)

	rt.server = server.New(server.Deps{
		Duel:      rt.service,
		Generator: gen,
		Transport: rt.transport,
		Profiles:  rt.db.Profiles(),
		Storage:   rt.db,
	},
		server.WithLogger(logger),
		server.WithCORSOrigins(cfg.Server.CORSOrigins),
		server.WithRateLimit(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window),
	)
	return rt, nil
}

func (rt *runtime) buildStore(cfg *config.HectoConfig, broker *channel.Broker) (duel.Store, error) {
	switch cfg.Store.Kind {
	case config.StoreRedis:
		var client *redis.Client
		if broker != nil {
			client = broker.Client()
		} else {
			opts, err := redis.ParseURL(cfg.Transport.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("invalid Redis URL: %w", err)
			}
			rt.rdb = redis.NewClient(opts)
			client = rt.rdb
		}
		return duel.NewRedisStore(client, cfg.Transport.Namespace)
	case config.StoreMirror:
		return duel.NewMirrorStore(rt.db.KV()), nil
	default:
		return duel.NewMemoryStore(), nil
	}
}

func disconnectTimeout(cfg *config.HectoConfig) time.Duration {
	if cfg.Duel.DisconnectTimeout == nil {
		return config.DefaultDisconnectTimeout
	}
	return *cfg.Duel.DisconnectTimeout
}

// Close tears the graph down in reverse order.
func (rt *runtime) Close() error {
	var errs []error
	if rt.service != nil {
		errs = append(errs, rt.service.Close())
	}
	if rt.transport != nil {
		errs = append(errs, rt.transport.Close())
	}
	if rt.rdb != nil {
		errs = append(errs, rt.rdb.Close())
	}
	if rt.db != nil {
		errs = append(errs, rt.db.Close())
	}
	return errors.Join(errs...)
}
