package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRepo struct {
	products  map[string]Product
	listCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[string]Product)}
}

func (f *fakeRepo) List(context.Context) ([]Product, error) {
	f.listCalls++
	var result []Product
	for _, p := range f.products {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeRepo) BySKUs(_ context.Context, skus []string) (map[string]Product, error) {
	found := make(map[string]Product)
	for _, sku := range skus {
		if p, ok := f.products[sku]; ok {
			found[sku] = p
		}
	}
	return found, nil
}

func (f *fakeRepo) Replace(_ context.Context, products []Product) error {
	f.products = make(map[string]Product, len(products))
	for _, p := range products {
		f.products[p.SKU] = p
	}
	return nil
}

type fakeCache struct {
	entries map[string]string
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	switch v := value.(type) {
	case []byte:
		f.entries[key] = string(v)
	case string:
		f.entries[key] = v
	}
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.entries[key], nil
}

func (f *fakeCache) Key(operation, suffix string) string {
	return "test:" + operation + ":" + suffix
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	// Pre-existing stray row and a drifted price; seeding must fix both.
	repo.products["toaster"] = Product{SKU: "toaster", PriceCents: 100}
	repo.products["mouse"] = Product{SKU: "mouse", Name: "Old Mouse", PriceCents: 1}

	svc := NewService(repo, newFakeCache(), time.Minute, testLogger())

	for i := 0; i < 2; i++ {
		if err := svc.Seed(context.Background()); err != nil {
			t.Fatalf("Seed() run %d error = %v", i+1, err)
		}
	}

	if len(repo.products) != 3 {
		t.Fatalf("catalog holds %d products after seeding, want 3", len(repo.products))
	}
	if _, ok := repo.products["toaster"]; ok {
		t.Fatal("stray product survived seeding")
	}
	if got := repo.products["mouse"].PriceCents; got != 2999 {
		t.Fatalf("mouse price = %d after seeding, want 2999", got)
	}
}

func TestListReadsThroughCache(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakeCache(), time.Minute, testLogger())
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		products, err := svc.List(context.Background())
		if err != nil {
			t.Fatalf("List() call %d error = %v", i+1, err)
		}
		if len(products) != 3 {
			t.Fatalf("List() call %d returned %d products, want 3", i+1, len(products))
		}
	}

	if repo.listCalls != 1 {
		t.Fatalf("repository queried %d times, want 1 (cache must serve the rest)", repo.listCalls)
	}
}

func TestListSurvivesCacheFailure(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	svc := NewService(repo, cache, time.Minute, testLogger())
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	products, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v with broken cache", err)
	}
	if len(products) != 3 {
		t.Fatalf("List() returned %d products, want 3", len(products))
	}
}

func TestResolveRequiresAllSKUs(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakeCache(), time.Minute, testLogger())
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	found, err := svc.Resolve(context.Background(), []string{"mouse", "keyboard"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Resolve() returned %d products, want 2", len(found))
	}

	if _, err := svc.Resolve(context.Background(), []string{"mouse", "toaster"}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrProductNotFound", err)
	}
}
