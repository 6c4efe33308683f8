package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/domain"
	dombatch "github.com/kailas-cloud/geodex/internal/domain/batch"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domimg "github.com/kailas-cloud/geodex/internal/domain/image"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 1000

// Item is one image to index. An empty ID is generated. A nil Altitude is unknown.
// An empty SiteCode is filled in by site detection.
type Item struct {
	ID           string
	CollectionID string
	StoragePath  string
	Lat, Lon     float64
	Altitude     *float64
	CameraModel  string
	DroneMaker   string
	TakenAt      time.Time
	SiteCode     string
}

// Service indexes image metadata with per-item error reporting.
type Service struct {
	images       ImageIndexer
	colls        CollectionReader
	sites        SiteDetector
	log          *zap.Logger
	maxBatchSize int
}

// New creates a batch service. sites can be nil to skip site attribution.
func New(images ImageIndexer, colls CollectionReader, sites SiteDetector, log *zap.Logger) *Service {
	return &Service{images: images, colls: colls, sites: sites, log: log, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Index validates, attributes and stores images. The result is parallel to items.
func (s *Service) Index(ctx context.Context, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(item.ID, fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrBatchTooLarge))
		}
		return results
	}

	valid := make([]domimg.Metadata, 0, len(items))
	validIdx := make([]int, 0, len(items))
	known := make(map[string]error)

	for i, item := range items {
		m, id, err := s.build(item)
		if err != nil {
			results[i] = dombatch.NewError(id, err)
			continue
		}
		if err := s.collectionExists(ctx, known, m.CollectionID()); err != nil {
			results[i] = dombatch.NewError(m.ID(), err)
			continue
		}
		valid = append(valid, m)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	s.attribute(ctx, valid)

	stored, err := s.images.Index(ctx, valid)
	if err != nil {
		for j, i := range validIdx {
			results[i] = dombatch.NewError(valid[j].ID(), fmt.Errorf("index images: %w", err))
		}
		return results
	}
	for j, i := range validIdx {
		results[i] = stored[j]
	}
	return results
}

func (s *Service) build(item Item) (domimg.Metadata, string, error) {
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	alt := math.NaN()
	if item.Altitude != nil {
		alt = *item.Altitude
	}
	m, err := domimg.New(id, item.CollectionID, item.StoragePath, geo.Point{Lat: item.Lat, Lon: item.Lon}, domimg.Attributes{
		Altitude:    alt,
		CameraModel: item.CameraModel,
		DroneMaker:  item.DroneMaker,
		TakenAt:     item.TakenAt,
		SiteCode:    item.SiteCode,
	})
	if err != nil {
		return domimg.Metadata{}, id, fmt.Errorf("validate image: %w: %w", domain.ErrInvalidInput, err)
	}
	return m, id, nil
}

func (s *Service) collectionExists(ctx context.Context, known map[string]error, id string) error {
	if err, ok := known[id]; ok {
		return err
	}
	_, err := s.colls.Get(ctx, id)
	if err != nil {
		err = fmt.Errorf("get collection %s: %w", id, err)
	}
	known[id] = err
	return err
}

// attribute fills in missing site codes. Detection failures leave codes empty.
func (s *Service) attribute(ctx context.Context, imgs []domimg.Metadata) {
	if s.sites == nil {
		return
	}
	points := make([]geo.Point, 0, len(imgs))
	idx := make([]int, 0, len(imgs))
	for i, m := range imgs {
		if m.SiteCode() == "" {
			points = append(points, m.Position())
			idx = append(idx, i)
		}
	}
	if len(points) == 0 {
		return
	}

	matches, err := s.sites.Detect(ctx, points)
	if err != nil {
		s.log.Warn("site detection failed, indexing without site codes", zap.Int("images", len(points)), zap.Error(err))
		return
	}
	for j, i := range idx {
		if matches[j].Found {
			imgs[i] = imgs[i].WithSiteCode(matches[j].Code)
		}
	}
}
