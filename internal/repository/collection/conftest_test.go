package collection

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/db/memory"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/repository/cursor"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
)

// mockStore overrides single store calls for failure paths.
type mockStore struct {
	*memory.Store
	jsonGetFn  func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonSetFn  func(ctx context.Context, key, path string, data []byte) error
	delMultiFn func(ctx context.Context, keys []string) (int, error)
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return m.Store.JSONGet(ctx, key, paths...)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return m.Store.JSONSet(ctx, key, path, data)
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) (int, error) {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return m.Store.DelMulti(ctx, keys)
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	s := memory.NewStore()
	layout := schema.New("t:")
	if err := schema.Ensure(context.Background(), s, zap.NewNop(), layout.All()...); err != nil {
		t.Fatal(err)
	}
	ms := &mockStore{Store: s}
	return New(ms, layout, cursor.New(s, zap.NewNop()), time.Minute), ms
}

func testCollection(t *testing.T, id, name string) domcol.Collection {
	t.Helper()
	c, err := domcol.New(id, name, "NEON", "ops@example.org", "drone survey")
	if err != nil {
		t.Fatal(err)
	}
	return c
}
