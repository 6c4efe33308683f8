// Package schema owns the key layout and FT index definitions of every stored document kind.
package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/site"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "geodex:"

// Collection index field aliases.
const (
	CollectionFieldID           = "id"
	CollectionFieldName         = "name"
	CollectionFieldOrganization = "organization"
	CollectionFieldContact      = "contact"
	CollectionFieldDescription  = "description"
)

// Layout maps document IDs to keys and index names under one prefix.
// Key patterns: {prefix}image:{id}, {prefix}site:{code}, {prefix}collection:{id};
// indexes: {prefix}images:idx, {prefix}sites:idx, {prefix}collections:idx.
type Layout struct {
	prefix string
}

// New creates a layout. An empty prefix falls back to DefaultPrefix.
func New(prefix string) Layout {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Layout{prefix: prefix}
}

// Prefix returns the root key prefix.
func (l Layout) Prefix() string { return l.prefix }

// ImageKey returns the document key of an image.
func (l Layout) ImageKey(id string) string { return l.ImagePrefix() + id }

// ImagePrefix returns the key prefix shared by image documents.
func (l Layout) ImagePrefix() string { return l.prefix + "image:" }

// ImageIndex returns the image index name.
func (l Layout) ImageIndex() string { return l.prefix + "images:idx" }

// SiteKey returns the document key of a site.
func (l Layout) SiteKey(code string) string { return l.SitePrefix() + code }

// SitePrefix returns the key prefix shared by site documents.
func (l Layout) SitePrefix() string { return l.prefix + "site:" }

// SiteIndex returns the site index name.
func (l Layout) SiteIndex() string { return l.prefix + "sites:idx" }

// CollectionKey returns the document key of a collection.
func (l Layout) CollectionKey(id string) string { return l.CollectionPrefix() + id }

// CollectionPrefix returns the key prefix shared by collection documents.
func (l Layout) CollectionPrefix() string { return l.prefix + "collection:" }

// CollectionIndex returns the collection index name.
func (l Layout) CollectionIndex() string { return l.prefix + "collections:idx" }

// TrimKey strips a key prefix, returning the document ID.
func TrimKey(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}

// Images is the image index: numeric lat/lon for the viewport box, a stored geohash for
// cell grouping, and a geoshape point for polygon filters.
func (l Layout) Images() *db.IndexDefinition {
	return db.NewIndex(l.ImageIndex()).OnJSON().Prefix(l.ImagePrefix()).
		Tag("$.id").As(image.FieldID).
		Tag("$.collection_id").As(image.FieldCollectionID).
		Tag("$.storage_path").As(image.FieldStoragePath).
		Numeric("$.lat").As(image.FieldLat).
		Numeric("$.lon").As(image.FieldLon).
		Tag("$.geohash").As(image.FieldGeohash).
		GeoShape("$.position").As(image.FieldPosition).
		Numeric("$.metadata.altitude").As(image.FieldAltitude).
		Tag("$.metadata.camera_model").As(image.FieldCameraModel).
		Tag("$.metadata.drone_maker").As(image.FieldDroneMaker).
		Numeric("$.metadata.taken_at").As(image.FieldTakenAt).Sortable().
		Tag("$.site_code").As(image.FieldSiteCode).
		MustBuild()
}

// Sites is the site index.
func (l Layout) Sites() *db.IndexDefinition {
	return db.NewIndex(l.SiteIndex()).OnJSON().Prefix(l.SitePrefix()).
		Tag("$.code").As(site.FieldCode).
		Text("$.name").As(site.FieldName).
		Tag("$.type").As(site.FieldType).
		Tag("$.state").As(site.FieldState).
		Tag("$.domain").As(site.FieldDomain).
		Numeric("$.lat").As(site.FieldLat).
		Numeric("$.lon").As(site.FieldLon).
		GeoShape("$.boundary").As(site.FieldBoundary).
		MustBuild()
}

// Collections is the collection reference index.
func (l Layout) Collections() *db.IndexDefinition {
	return db.NewIndex(l.CollectionIndex()).OnJSON().Prefix(l.CollectionPrefix()).
		Tag("$.id").As(CollectionFieldID).
		Text("$.name").As(CollectionFieldName).
		Text("$.organization").As(CollectionFieldOrganization).
		Text("$.contact").As(CollectionFieldContact).
		Text("$.description").As(CollectionFieldDescription).
		MustBuild()
}

// All returns every index definition of the layout.
func (l Layout) All() []*db.IndexDefinition {
	return []*db.IndexDefinition{l.Images(), l.Sites(), l.Collections()}
}

// indexStore is the consumer interface for index bootstrap (ISP).
type indexStore interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Ensure creates any missing index. An index created concurrently by another
// instance counts as present.
func Ensure(ctx context.Context, s indexStore, log *zap.Logger, defs ...*db.IndexDefinition) error {
	for _, def := range defs {
		exists, err := s.IndexExists(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if err := s.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
		log.Info("index created", zap.String("index", def.Name), zap.Int("fields", len(def.Fields)))
	}
	return nil
}
