package geodex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/geodex/internal/db/redis"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/repository/aggregation"
	collectionrepo "github.com/kailas-cloud/geodex/internal/repository/collection"
	"github.com/kailas-cloud/geodex/internal/repository/cursor"
	imagerepo "github.com/kailas-cloud/geodex/internal/repository/image"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
	siterepo "github.com/kailas-cloud/geodex/internal/repository/site"
	batchuc "github.com/kailas-cloud/geodex/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/geodex/internal/usecase/collection"
	"github.com/kailas-cloud/geodex/internal/usecase/mapview"
	siteuc "github.com/kailas-cloud/geodex/internal/usecase/site"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultPinZoomThreshold = 10
)

// Client is the geodex SDK entry point. It talks to the search backend directly,
// without the HTTP server.
type Client struct {
	store    db.Store
	collSvc  *collectionuc.Service
	siteSvc  *siteuc.Service
	batchSvc *batchuc.Service
	mapSvc   *mapview.Service
	obs      *observer
}

// New creates a Client, waits for the backend and ensures the indexes exist.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:        schema.DefaultPrefix,
		cursorTTL:        time.Minute,
		pinZoomThreshold: defaultPinZoomThreshold,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("geodex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "":
		return nil, errors.New("geodex: backend required (use WithRedis or WithMemory)")
	case "memory":
		return memory.NewStore(), nil
	case "redis":
		if len(cfg.addrs) == 0 {
			return nil, errors.New("geodex: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("geodex: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("geodex: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	log := cfg.logger
	layout := schema.New(cfg.keyPrefix)
	if err := schema.Ensure(ctx, store, log, layout.All()...); err != nil {
		return nil, fmt.Errorf("geodex: ensure indexes: %w", err)
	}

	pages := cursor.New(store, log)
	imageRepo := imagerepo.New(store, layout, pages, log)
	siteRepo := siterepo.New(store, layout, pages, cfg.cursorTTL, log)
	collRepo := collectionrepo.New(store, layout, pages, cfg.cursorTTL)

	directory := domcol.NewDirectory()
	collSvc := collectionuc.New(collRepo, imageRepo, directory, log)
	siteSvc := siteuc.New(siteRepo, log)
	batchSvc := batchuc.New(imageRepo, collRepo, siteSvc, log)
	if cfg.maxBatchSize > 0 {
		batchSvc = batchSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}
	mapSvc := mapview.New(mapview.Deps{
		Buckets: aggregation.New(store, layout.ImageIndex(), cfg.maxCells),
		Sites:   siteRepo,
		Images:  imageRepo,
	}, directory, mapview.Config{
		DefaultSamples:   cfg.samples,
		PinZoomThreshold: cfg.pinZoomThreshold,
	}, log)

	if err := collSvc.Sync(ctx); err != nil {
		return nil, fmt.Errorf("geodex: load collections: %w", err)
	}
	if err := siteSvc.Sync(ctx); err != nil {
		return nil, fmt.Errorf("geodex: load sites: %w", err)
	}

	return &Client{
		store:    store,
		collSvc:  collSvc,
		siteSvc:  siteSvc,
		batchSvc: batchSvc,
		mapSvc:   mapSvc,
		obs:      obs,
	}, nil
}

// Close stops every open session and releases the backend connection.
func (c *Client) Close() {
	if c.mapSvc != nil {
		c.mapSvc.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Collections returns the collection management service.
func (c *Client) Collections() *CollectionService {
	return &CollectionService{svc: c.collSvc, obs: c.obs}
}

// Sites returns the research site service.
func (c *Client) Sites() *SiteService {
	return &SiteService{svc: c.siteSvc, obs: c.obs}
}
