// Package image models indexed image metadata and the rows shown for a selected marker.
package image

import (
	"fmt"
	"math"
	"path"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// Index field aliases. Filters, aggregation and projection all address documents through these.
const (
	FieldID           = "id"
	FieldCollectionID = "collection_id"
	FieldStoragePath  = "storage_path"
	FieldLat          = "lat"
	FieldLon          = "lon"
	FieldGeohash      = "geohash"
	FieldPosition     = "position"
	FieldAltitude     = "altitude"
	FieldCameraModel  = "camera_model"
	FieldDroneMaker   = "drone_maker"
	FieldTakenAt      = "taken_at"
	FieldSiteCode     = "site_code"
)

// Conditions is the filter schema of the image index: tags take terms,
// numerics take ranges, the geoshape takes polygons.
var Conditions = query.Schema{
	FieldID:           {query.KindTerm},
	FieldCollectionID: {query.KindTerm},
	FieldStoragePath:  {query.KindTerm},
	FieldGeohash:      {query.KindTerm},
	FieldCameraModel:  {query.KindTerm},
	FieldDroneMaker:   {query.KindTerm},
	FieldSiteCode:     {query.KindTerm},
	FieldLat:          {query.KindRange},
	FieldLon:          {query.KindRange},
	FieldAltitude:     {query.KindRange},
	FieldTakenAt:      {query.KindRange, query.KindDateInterval},
	FieldPosition:     {query.KindPolygon},
}

// Metadata is the indexed description of one uploaded image (immutable value object).
type Metadata struct {
	id           string
	collectionID string
	storagePath  string
	position     geo.Point
	altitude     float64
	cameraModel  string
	droneMaker   string
	takenAt      time.Time
	siteCode     string
}

// Attributes are the optional capture attributes of an image.
type Attributes struct {
	Altitude    float64
	CameraModel string
	DroneMaker  string
	TakenAt     time.Time
	SiteCode    string
}

// New validates and creates image Metadata. Altitude may be NaN when unknown.
func New(id, collectionID, storagePath string, position geo.Point, attrs Attributes) (Metadata, error) {
	if id == "" {
		return Metadata{}, fmt.Errorf("image id is required")
	}
	if collectionID == "" {
		return Metadata{}, fmt.Errorf("collection id is required")
	}
	if storagePath == "" {
		return Metadata{}, fmt.Errorf("storage path is required")
	}
	if !position.Valid() {
		return Metadata{}, fmt.Errorf("position %v out of range", position)
	}
	return Metadata{
		id:           id,
		collectionID: collectionID,
		storagePath:  storagePath,
		position:     position,
		altitude:     attrs.Altitude,
		cameraModel:  attrs.CameraModel,
		droneMaker:   attrs.DroneMaker,
		takenAt:      attrs.TakenAt.UTC(),
		siteCode:     attrs.SiteCode,
	}, nil
}

// ID returns the image identifier.
func (m Metadata) ID() string { return m.id }

// CollectionID returns the owning collection.
func (m Metadata) CollectionID() string { return m.collectionID }

// StoragePath returns the object storage path of the image file.
func (m Metadata) StoragePath() string { return m.storagePath }

// Position returns where the image was taken.
func (m Metadata) Position() geo.Point { return m.position }

// Geohash returns the stored-precision geohash of the position.
func (m Metadata) Geohash() string { return geo.Geohash(m.position, geo.StoredPrecision) }

// Altitude returns the capture altitude in meters, NaN when unknown.
func (m Metadata) Altitude() float64 { return m.altitude }

// CameraModel returns the camera model.
func (m Metadata) CameraModel() string { return m.cameraModel }

// DroneMaker returns the drone manufacturer.
func (m Metadata) DroneMaker() string { return m.droneMaker }

// TakenAt returns the capture time.
func (m Metadata) TakenAt() time.Time { return m.takenAt }

// SiteCode returns the field site the image was taken in, empty if none.
func (m Metadata) SiteCode() string { return m.siteCode }

// WithSiteCode returns a copy tagged with a site code.
func (m Metadata) WithSiteCode(code string) Metadata {
	m.siteCode = code
	return m
}

// Row is the display row for one document of a selected bucket.
type Row struct {
	ID             string
	DisplayName    string
	CollectionName string
	Altitude       float64
	CameraModel    string
	TakenAt        time.Time
}

// HasAltitude reports whether the altitude parsed to a finite value.
func (r Row) HasAltitude() bool { return !math.IsNaN(r.Altitude) && !math.IsInf(r.Altitude, 0) }

// DisplayName returns the file name portion of a storage path.
func DisplayName(storagePath string) string {
	if storagePath == "" {
		return ""
	}
	return path.Base(storagePath)
}

// CollectionNames resolves a collection ID to its display name.
type CollectionNames interface {
	Name(id string) string
}
