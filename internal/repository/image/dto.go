package image

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domimg "github.com/kailas-cloud/geodex/internal/domain/image"
)

// lookupPaths are the projections fetched for selection enrichment.
var lookupPaths = []string{
	"$.id",
	"$.collection_id",
	"$.storage_path",
	"$.metadata.altitude",
	"$.metadata.camera_model",
	"$.metadata.taken_at",
}

// imageDoc is the stored JSON shape of an image.
type imageDoc struct {
	ID           string      `json:"id"`
	CollectionID string      `json:"collection_id"`
	StoragePath  string      `json:"storage_path"`
	Lat          float64     `json:"lat"`
	Lon          float64     `json:"lon"`
	Geohash      string      `json:"geohash"`
	Position     string      `json:"position"`
	SiteCode     string      `json:"site_code"`
	Metadata     metadataDoc `json:"metadata"`
}

type metadataDoc struct {
	// Altitude is null when unknown.
	Altitude    *float64 `json:"altitude"`
	CameraModel string   `json:"camera_model"`
	DroneMaker  string   `json:"drone_maker"`
	TakenAt     int64    `json:"taken_at"`
}

func toDoc(m domimg.Metadata) (imageDoc, error) {
	pos, err := geo.PointWKT(m.Position())
	if err != nil {
		return imageDoc{}, err
	}
	var alt *float64
	if a := m.Altitude(); !math.IsNaN(a) && !math.IsInf(a, 0) {
		alt = &a
	}
	return imageDoc{
		ID:           m.ID(),
		CollectionID: m.CollectionID(),
		StoragePath:  m.StoragePath(),
		Lat:          m.Position().Lat,
		Lon:          m.Position().Lon,
		Geohash:      m.Geohash(),
		Position:     pos,
		SiteCode:     m.SiteCode(),
		Metadata: metadataDoc{
			Altitude:    alt,
			CameraModel: m.CameraModel(),
			DroneMaker:  m.DroneMaker(),
			TakenAt:     m.TakenAt().Unix(),
		},
	}, nil
}

// lookupRecord is one decoded projection reply.
type lookupRecord struct {
	id           string
	collectionID string
	storagePath  string
	altitude     float64
	cameraModel  string
	takenAt      time.Time
}

// parseLookup decodes a multi-path JSON.GET reply ({"$.path": [value], ...}).
// Every projected path must be present; altitude alone may be null or non-numeric.
func parseLookup(raw []byte) (lookupRecord, error) {
	var reply map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &reply); err != nil {
		return lookupRecord{}, fmt.Errorf("decode projection: %w", err)
	}
	first := func(path string) (json.RawMessage, error) {
		vals := reply[path]
		if len(vals) == 0 {
			return nil, fmt.Errorf("missing %s", path)
		}
		return vals[0], nil
	}

	var rec lookupRecord
	for path, dst := range map[string]*string{
		"$.id":                    &rec.id,
		"$.collection_id":         &rec.collectionID,
		"$.storage_path":          &rec.storagePath,
		"$.metadata.camera_model": &rec.cameraModel,
	} {
		v, err := first(path)
		if err != nil {
			return lookupRecord{}, err
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return lookupRecord{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	if rec.id == "" || rec.collectionID == "" || rec.storagePath == "" {
		return lookupRecord{}, fmt.Errorf("document lacks identity fields")
	}

	alt, err := first("$.metadata.altitude")
	if err != nil {
		return lookupRecord{}, err
	}
	rec.altitude = parseAltitude(alt)

	taken, err := first("$.metadata.taken_at")
	if err != nil {
		return lookupRecord{}, err
	}
	var secs *float64
	if err := json.Unmarshal(taken, &secs); err != nil {
		return lookupRecord{}, fmt.Errorf("taken_at: %w", err)
	}
	if secs == nil {
		return lookupRecord{}, fmt.Errorf("taken_at is null")
	}
	rec.takenAt = time.Unix(int64(*secs), 0).UTC()
	return rec, nil
}

func parseAltitude(v json.RawMessage) float64 {
	var raw any
	if err := json.Unmarshal(v, &raw); err != nil {
		return math.NaN()
	}
	switch t := raw.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsInf(f, 0) {
			return f
		}
	}
	return math.NaN()
}
