package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const catalogKeyPrefix = "quiz:catalog"

// CatalogKey names the hash a catalog source is cached under, e.g. quiz:catalog:postgres.
// Parts distinguish sources of the same kind (a DSN, a path).
func CatalogKey(source string, parts ...string) string {
	return strings.Join(append([]string{catalogKeyPrefix, source}, parts...), ":")
}

// CatalogCache keeps the catalog in Redis and falls back to a loader on a miss.
// Sessions are stored as: HSET {key} {sessionID} {session json}
type CatalogCache struct {
	client *redis.Client
	loader app.CatalogLoader
	key    string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogCache(client *redis.Client, loader app.CatalogLoader, key string, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		key:    key,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := c.cached(ctx); ok {
		return catalog, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		if catalog, ok := c.cached(ctx); ok {
			return catalog, nil
		}

		catalog, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}
		if err := c.store(ctx, catalog); err != nil {
			log.Warn().Err(err).Msg("catalog cache write failed")
		}
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached catalog so the next load hits the loader.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return InvalidateCatalog(ctx, c.client, c.key)
}

// InvalidateCatalog drops the catalog cached under key. Writers of a catalog source call
// it after changing the source.
func InvalidateCatalog(ctx context.Context, client *redis.Client, key string) error {
	return client.Del(ctx, key).Err()
}

func (c *CatalogCache) cached(ctx context.Context) (domain.Catalog, bool) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Catalog{}, false
	}
	catalog, err := buildCatalogFromCache(fields)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable cached catalog")
		return domain.Catalog{}, false
	}
	return catalog, true
}

func (c *CatalogCache) store(ctx context.Context, catalog domain.Catalog) error {
	if len(catalog.Sessions) == 0 {
		return nil
	}
	ttl := c.ttlWithJitter()
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key)
	for _, s := range catalog.Sessions {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session %d: %w", s.ID, err)
		}
		pipe.HSet(ctx, c.key, fmt.Sprint(s.ID), raw)
	}
	if ttl > 0 {
		pipe.Expire(ctx, c.key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func buildCatalogFromCache(fields map[string]string) (domain.Catalog, error) {
	catalog := domain.Catalog{Sessions: make([]domain.Session, 0, len(fields))}
	for id, raw := range fields {
		var s domain.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return domain.Catalog{}, fmt.Errorf("session %s: %w", id, err)
		}
		catalog.Sessions = append(catalog.Sessions, s)
	}
	return catalog.Normalize()
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
