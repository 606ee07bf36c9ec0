package cli

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/file"
	"live-quiz-service/internal/infra/memory"
	pgloader "live-quiz-service/internal/infra/postgres"
	redisinfra "live-quiz-service/internal/infra/redis"
)

// deps holds the external connections opened from config. Nil fields are not configured.
type deps struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func openDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}
	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisinfra.Ping(ctx, d.redis); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not reachable yet")
		}
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.pool = pool
	}
	return d, nil
}

func (d *deps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// catalogLoader picks the configured source. The postgres source sits behind the Redis
// cache when Redis is configured; a file is read fresh on every load so edits apply on
// the next start.
func (d *deps) catalogLoader(cfg config.Config) (app.CatalogLoader, error) {
	switch cfg.Catalog.Source {
	case "file":
		return file.NewCatalogLoader(cfg.Catalog.Path), nil
	case "postgres":
		if d.pool == nil {
			return nil, fmt.Errorf("catalog source postgres needs postgres.url")
		}
		var loader app.CatalogLoader = pgloader.NewCatalogLoader(d.pool)
		if d.redis != nil {
			ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
			loader = redisinfra.NewCatalogCache(d.redis, loader, postgresCatalogKey(cfg.Postgres.URL), ttl)
		}
		return loader, nil
	default:
		return memory.NewStaticCatalogLoader(domain.SampleCatalog()), nil
	}
}

// invalidatePostgresCatalog drops the cached copy of the postgres catalog after it was
// rewritten.
func (d *deps) invalidatePostgresCatalog(ctx context.Context, cfg config.Config) error {
	if d.redis == nil {
		return nil
	}
	return redisinfra.InvalidateCatalog(ctx, d.redis, postgresCatalogKey(cfg.Postgres.URL))
}

// postgresCatalogKey keys the cache by database host and name. Credentials stay out of
// Redis.
func postgresCatalogKey(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return redisinfra.CatalogKey("postgres")
	}
	return redisinfra.CatalogKey("postgres", u.Host+u.Path)
}
