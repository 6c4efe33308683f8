package collection

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/domain"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
)

// --- Mocks ---

type mockRepo struct {
	stored    map[string]domcol.Collection
	putErr    error
	listErr   error
	deleteErr error
	deleted   []string
	calls     []string
}

func newMockRepo(cols ...domcol.Collection) *mockRepo {
	m := &mockRepo{stored: make(map[string]domcol.Collection)}
	for _, c := range cols {
		m.stored[c.ID()] = c
	}
	return m
}

func (m *mockRepo) Put(_ context.Context, col domcol.Collection) (bool, error) {
	if m.putErr != nil {
		return false, m.putErr
	}
	_, exists := m.stored[col.ID()]
	m.stored[col.ID()] = col
	return !exists, nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domcol.Collection, error) {
	c, ok := m.stored[id]
	if !ok {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) List(_ context.Context) ([]domcol.Collection, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domcol.Collection, 0, len(m.stored))
	for _, c := range m.stored {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.calls = append(m.calls, "repo.delete")
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.stored, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockImages struct {
	repo  *mockRepo
	count int
	err   error
}

func (m *mockImages) DeleteByCollection(_ context.Context, _ string) (int, error) {
	m.repo.calls = append(m.repo.calls, "images.delete")
	return m.count, m.err
}

func makeCollection(t *testing.T, id, name string) domcol.Collection {
	t.Helper()
	c, err := domcol.New(id, name, "NEON", "ops@example.org", "")
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	return c
}

// --- Tests ---

func TestPut_CreatesAndUpdatesDirectory(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, &mockImages{repo: repo}, domcol.NewDirectory(), zap.NewNop())

	_, created, err := svc.Put(context.Background(), "c1", "Flight One", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("expected created")
	}
	if got := svc.Directory().Name("c1"); got != "Flight One" {
		t.Errorf("directory name %q", got)
	}

	_, created, err = svc.Put(context.Background(), "c1", "Flight 1", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second put should replace")
	}
	if got := svc.Directory().Name("c1"); got != "Flight 1" {
		t.Errorf("directory name %q", got)
	}
}

func TestPut_Invalid(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, &mockImages{repo: repo}, domcol.NewDirectory(), zap.NewNop())

	_, _, err := svc.Put(context.Background(), "bad id!", "x", "", "", "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if len(repo.stored) != 0 {
		t.Error("invalid collection stored")
	}
}

func TestPut_RepoError(t *testing.T) {
	repo := newMockRepo()
	repo.putErr = errors.New("conn refused")
	dir := domcol.NewDirectory()
	svc := New(repo, &mockImages{repo: repo}, dir, zap.NewNop())

	if _, _, err := svc.Put(context.Background(), "c1", "x", "", "", ""); err == nil {
		t.Fatal("expected error")
	}
	if dir.Len() != 0 {
		t.Error("directory updated after failed put")
	}
}

func TestDelete_ImagesFirst(t *testing.T) {
	repo := newMockRepo(makeCollection(t, "c1", "Flight One"))
	dir := domcol.NewDirectory()
	svc := New(repo, &mockImages{repo: repo, count: 1200}, dir, zap.NewNop())
	if err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	n, err := svc.Delete(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1200 {
		t.Errorf("removed %d images", n)
	}
	if len(repo.calls) != 2 || repo.calls[0] != "images.delete" || repo.calls[1] != "repo.delete" {
		t.Errorf("call order %v", repo.calls)
	}
	if dir.Name("c1") != domcol.UnknownName {
		t.Error("directory still names deleted collection")
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, &mockImages{repo: repo}, domcol.NewDirectory(), zap.NewNop())

	if _, err := svc.Delete(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(repo.calls) != 0 {
		t.Errorf("calls %v", repo.calls)
	}
}

func TestDelete_ImageFailureKeepsRow(t *testing.T) {
	repo := newMockRepo(makeCollection(t, "c1", "Flight One"))
	svc := New(repo, &mockImages{repo: repo, count: 500, err: errors.New("timeout")}, domcol.NewDirectory(), zap.NewNop())

	n, err := svc.Delete(context.Background(), "c1")
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 500 {
		t.Errorf("partial count %d", n)
	}
	if _, ok := repo.stored["c1"]; !ok {
		t.Error("collection row deleted despite image failure")
	}
}

func TestSync(t *testing.T) {
	repo := newMockRepo(makeCollection(t, "c1", "One"), makeCollection(t, "c2", "Two"))
	dir := domcol.NewDirectory()
	dir.Put(makeCollection(t, "stale", "Stale"))
	svc := New(repo, &mockImages{repo: repo}, dir, zap.NewNop())

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if dir.Len() != 2 || dir.Name("c2") != "Two" || dir.Name("stale") != domcol.UnknownName {
		t.Errorf("directory len %d", dir.Len())
	}

	repo.listErr = errors.New("down")
	if err := svc.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if dir.Len() != 2 {
		t.Error("failed sync cleared directory")
	}
}
