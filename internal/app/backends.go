package app

import (
	"context"
	"fmt"
	"time"

	"github.com/accessmap/gateway/internal/config"
	"github.com/accessmap/gateway/internal/database"
	"github.com/accessmap/gateway/internal/modules/ai"
	"github.com/accessmap/gateway/internal/modules/places"
	"github.com/accessmap/gateway/internal/modules/summary"
	"github.com/accessmap/gateway/internal/pkg/keylock"
	pkgmongo "github.com/accessmap/gateway/internal/pkg/mongo"
	pkgredis "github.com/accessmap/gateway/internal/pkg/redis"
	"github.com/accessmap/gateway/internal/store"
	"go.uber.org/zap"
)

type backends struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	checks  map[string]func(context.Context) error
	closers []func(context.Context) error
}

func (b *backends) open(ctx context.Context) (Deps, error) {
	st, err := b.openStore(ctx)
	if err != nil {
		return Deps{}, err
	}
	locker, err := b.openLocker()
	if err != nil {
		return Deps{}, err
	}

	gen, err := ai.NewGenerator(b.cfg.AI)
	if err != nil {
		return Deps{}, fmt.Errorf("ai: %w", err)
	}
	if b.cfg.AI.APIKey == "" {
		b.logger.Warn("ai api key is empty, summary generation will fail", zap.String("provider", b.cfg.AI.Type))
	}

	mapsClient, err := places.NewMapsClient(b.cfg.Maps.APIKey)
	if err != nil {
		return Deps{}, err
	}
	if mapsClient == nil {
		b.logger.Warn("maps api key is empty, /api/places and /api/directions are disabled")
	}

	return Deps{
		Store:     st,
		Generator: gen,
		Maps:      mapsClient,
		Locker:    locker,
		Checks:    b.checks,
	}, nil
}

func (b *backends) openStore(ctx context.Context) (store.Store, error) {
	switch b.cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, err := pkgmongo.Connect(ctx, b.cfg.MongoURI, b.cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.checks["mongo"] = client.Ping

		st := store.NewMongoStore(client.Database())
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		return st, nil
	default:
		db, err := database.Connect(b.cfg, true)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		b.closers = append(b.closers, func(context.Context) error { return database.Close(db) })
		b.checks["database"] = func(ctx context.Context) error { return database.Ping(ctx, db) }
		return store.NewGormStore(db), nil
	}
}

func (b *backends) openLocker() (summary.Locker, error) {
	if b.cfg.UseRedis() {
		rc, err := pkgredis.Connect(b.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.closers = append(b.closers, func(context.Context) error { return rc.Close() })
		b.checks["redis"] = rc.Ping
		ttl := time.Duration(b.cfg.Summary.LockTTLSeconds) * time.Second
		return rc.Locker(ttl, b.logger), nil
	}
	if b.cfg.Summary.Lock == config.SummaryLockNone {
		return nil, nil
	}
	return keylock.New(), nil
}

func (b *backends) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i](ctx)
	}
	b.closers = nil
}
