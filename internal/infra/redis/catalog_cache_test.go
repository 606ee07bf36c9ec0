package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const testCatalogKey = "quiz:catalog:test"

func TestCatalogCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(domain.SampleCatalog())}
	cache := NewCatalogCache(client, loader, testCatalogKey, time.Minute)

	catalog, err := cache.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(testCatalogKey) {
		t.Fatalf("expected %s to be written", testCatalogKey)
	}
	if ttl := mr.TTL(testCatalogKey); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %s", ttl)
	}

	cached, err := cache.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("load cached catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Sessions) != len(catalog.Sessions) {
		t.Fatalf("expected %d sessions from cache, got %d", len(catalog.Sessions), len(cached.Sessions))
	}
	q := cached.Sessions[0].Questions[1]
	if q.ID != "q2" || q.CorrectIndex != 1 || q.Position != 1 || q.SessionID != 1 {
		t.Fatalf("cached question lost data: %+v", q)
	}

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestCatalogCachePropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	boom := errors.New("boom")
	cache := NewCatalogCache(newClient(mr), failingLoader{err: boom}, testCatalogKey, time.Minute)
	if _, err := cache.LoadCatalog(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if mr.Exists(testCatalogKey) {
		t.Fatalf("expected nothing cached on failure")
	}
}

func TestCatalogCacheKeysAreSeparatedBySource(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := newClient(mr)
	ctx := context.Background()

	sample := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(domain.SampleCatalog())}
	other := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(domain.Catalog{Sessions: []domain.Session{{
		ID:   9,
		Name: "Music",
		Questions: []domain.Question{{
			ID:      "m1",
			Prompt:  "How many strings on a violin?",
			Options: []string{"3", "4"},
		}},
	}}})}

	if _, err := NewCatalogCache(client, sample, CatalogKey("postgres", "db-a"), time.Minute).LoadCatalog(ctx); err != nil {
		t.Fatalf("load a: %v", err)
	}
	got, err := NewCatalogCache(client, other, CatalogKey("postgres", "db-b"), time.Minute).LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if other.calls != 1 || len(got.Sessions) != 1 || got.Sessions[0].ID != 9 {
		t.Fatalf("expected second source loaded from its own loader, calls=%d sessions=%+v", other.calls, got.Sessions)
	}
}

func TestInvalidateCatalogForcesReload(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := newClient(mr)
	ctx := context.Background()

	key := CatalogKey("postgres", "db")
	loader := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(domain.SampleCatalog())}
	if _, err := NewCatalogCache(client, loader, key, time.Minute).LoadCatalog(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := InvalidateCatalog(ctx, client, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected %s removed", key)
	}
	if _, err := NewCatalogCache(client, loader, key, time.Minute).LoadCatalog(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected the loader to run again, calls=%d", loader.calls)
	}
}

func TestCatalogKey(t *testing.T) {
	if got := CatalogKey("postgres"); got != "quiz:catalog:postgres" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := CatalogKey("postgres", "db:5432/quiz"); got != "quiz:catalog:postgres:db:5432/quiz" {
		t.Fatalf("unexpected key %q", got)
	}
}

type countingLoader struct {
	app.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx)
}

type failingLoader struct {
	err error
}

func (l failingLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	return domain.Catalog{}, l.err
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
