package site

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
)

// --- Mocks ---

type mockRepo struct {
	matches   []domsite.Match
	detectErr error
	sites     []domsite.Site
	listErr   error
	putErr    error
	detected  int
}

func (m *mockRepo) Detect(_ context.Context, points []geo.Point) ([]domsite.Match, error) {
	m.detected += len(points)
	return m.matches, m.detectErr
}

func (m *mockRepo) List(_ context.Context) ([]domsite.Site, error) {
	return m.sites, m.listErr
}

func (m *mockRepo) Put(_ context.Context, sites []domsite.Site) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.sites = append(m.sites, sites...)
	return nil
}

func makeSite(t *testing.T, code string) domsite.Site {
	t.Helper()
	ring := geo.Ring{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0}}
	s, err := domsite.New(code, geo.Point{Lat: 0.5, Lon: 0.5}, ring, domsite.Details{Name: code})
	if err != nil {
		t.Fatalf("domsite.New: %v", err)
	}
	return s
}

// --- Tests ---

func TestDetect(t *testing.T) {
	repo := &mockRepo{matches: []domsite.Match{{Code: "A", Found: true}, {}}}
	svc := New(repo, zap.NewNop())

	got, err := svc.Detect(context.Background(), []geo.Point{{Lat: 0.5, Lon: 0.5}, {Lat: 5, Lon: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, repo.matches) {
		t.Errorf("got %+v", got)
	}
}

func TestDetect_InvalidPoint(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, zap.NewNop())

	_, err := svc.Detect(context.Background(), []geo.Point{{Lat: 0, Lon: 0}, {Lat: 95, Lon: 0}})
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Fatalf("err = %v", err)
	}
	if repo.detected != 0 {
		t.Error("backend queried for invalid input")
	}
}

func TestDetect_MismatchPropagates(t *testing.T) {
	repo := &mockRepo{detectErr: domain.NewCountMismatch(domain.ErrResponseCountMismatch, 2, 1)}
	svc := New(repo, zap.NewNop())

	_, err := svc.Detect(context.Background(), []geo.Point{{}, {}})
	if !errors.Is(err, domain.ErrResponseCountMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestPutAndSync(t *testing.T) {
	repo := &mockRepo{sites: []domsite.Site{makeSite(t, "NIWO")}}
	svc := New(repo, zap.NewNop())

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Put(context.Background(), []domsite.Site{makeSite(t, "ABBY")}); err != nil {
		t.Fatal(err)
	}
	for _, code := range []string{"ABBY", "NIWO"} {
		if st, err := svc.Get(code); err != nil || st.Code() != code {
			t.Errorf("Get(%s) = %v, %v", code, st.Code(), err)
		}
	}

	repo.putErr = errors.New("down")
	if err := svc.Put(context.Background(), []domsite.Site{makeSite(t, "BART")}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := svc.Get("BART"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("failed put cached: %v", err)
	}
}

func TestSync_ErrorKeepsCache(t *testing.T) {
	repo := &mockRepo{sites: []domsite.Site{makeSite(t, "NIWO")}}
	svc := New(repo, zap.NewNop())
	if err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	repo.listErr = errors.New("down")
	if err := svc.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := svc.Get("NIWO"); err != nil {
		t.Errorf("cache cleared: %v", err)
	}
}
