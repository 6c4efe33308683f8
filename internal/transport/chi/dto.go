package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain"
	dombatch "github.com/kailas-cloud/geodex/internal/domain/batch"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domimg "github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
	batchuc "github.com/kailas-cloud/geodex/internal/usecase/batch"
	"github.com/kailas-cloud/geodex/internal/usecase/mapview"
)

// errorCode is the machine-readable error code of an error response.
type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeValidationFailed    errorCode = "validation_failed"
	codeInvalidCondition    errorCode = "invalid_condition"
	codeInvalidGeometry     errorCode = "invalid_geometry"
	codeUnauthorized        errorCode = "unauthorized"
	codeNotFound            errorCode = "not_found"
	codeSessionNotFound     errorCode = "session_not_found"
	codeAlreadyExists       errorCode = "already_exists"
	codeBatchTooLarge       errorCode = "batch_too_large"
	codeCursorExpired       errorCode = "cursor_expired"
	codeBackendInconsistent errorCode = "backend_inconsistent"
	codeInternalError       errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p pointDTO) point() geo.Point { return geo.Point{Lat: p.Lat, Lon: p.Lon} }

func pointsFromDTO(pp []pointDTO) []geo.Point {
	out := make([]geo.Point, len(pp))
	for i, p := range pp {
		out[i] = p.point()
	}
	return out
}

func ringToDTO(r geo.Ring) []pointDTO {
	out := make([]pointDTO, len(r))
	for i, p := range r {
		out[i] = pointDTO{Lat: p.Lat, Lon: p.Lon}
	}
	return out
}

type viewportDTO struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

func (v viewportDTO) box() geo.BoundingBox {
	return geo.NewBoundingBox(v.Top, v.Left, v.Bottom, v.Right)
}

func viewportToDTO(b geo.BoundingBox) viewportDTO {
	return viewportDTO{Top: b.Top(), Left: b.Left(), Bottom: b.Bottom(), Right: b.Right()}
}

type conditionDTO struct {
	ID      string     `json:"id,omitempty"`
	Enabled *bool      `json:"enabled,omitempty"`
	Type    string     `json:"type"`
	Field   string     `json:"field,omitempty"`
	Values  []string   `json:"values,omitempty"`
	GT      *float64   `json:"gt,omitempty"`
	GTE     *float64   `json:"gte,omitempty"`
	LT      *float64   `json:"lt,omitempty"`
	LTE     *float64   `json:"lte,omitempty"`
	Points  []pointDTO `json:"points,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

func entriesFromDTO(cc []conditionDTO) ([]query.Entry, error) {
	entries := make([]query.Entry, 0, len(cc))
	for i, c := range cc {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		enabled := c.Enabled == nil || *c.Enabled
		entries = append(entries, query.Entry{ID: c.ID, Enabled: enabled, Condition: cond})
	}
	return entries, nil
}

func conditionFromDTO(c conditionDTO) (query.Condition, error) {
	switch query.Kind(c.Type) {
	case query.KindTerm:
		return query.NewTerm(c.Field, c.Values...)
	case query.KindRange:
		b, err := query.NewBounds(c.GT, c.GTE, c.LT, c.LTE)
		if err != nil {
			return nil, err
		}
		return query.NewRange(c.Field, b)
	case query.KindPolygon:
		field := c.Field
		if field == "" {
			field = domimg.FieldPosition
		}
		return query.NewPolygon(field, pointsFromDTO(c.Points)...)
	case query.KindDateInterval:
		field := c.Field
		if field == "" {
			field = domimg.FieldTakenAt
		}
		var from, to time.Time
		if c.From != nil {
			from = *c.From
		}
		if c.To != nil {
			to = *c.To
		}
		return query.NewDateInterval(field, from, to)
	default:
		return nil, fmt.Errorf("%w: unknown condition type %q", domain.ErrInvalidCondition, c.Type)
	}
}

func conditionsToDTO(entries []query.Entry) []conditionDTO {
	out := make([]conditionDTO, 0, len(entries))
	for _, e := range entries {
		enabled := e.Enabled
		d := conditionDTO{ID: e.ID, Enabled: &enabled, Type: string(e.Condition.Kind())}
		switch c := e.Condition.(type) {
		case query.TermCondition:
			d.Field, d.Values = c.Field(), c.Values()
		case query.RangeCondition:
			b := c.Bounds()
			d.Field, d.GT, d.GTE, d.LT, d.LTE = c.Field(), b.GT(), b.GTE(), b.LT(), b.LTE()
		case query.PolygonCondition:
			d.Field, d.Points = c.Field(), ringToDTO(c.Ring())
		case query.DateIntervalCondition:
			d.Field = c.Field()
			if from := c.From(); !from.IsZero() {
				d.From = &from
			}
			if to := c.To(); !to.IsZero() {
				d.To = &to
			}
		}
		out = append(out, d)
	}
	return out
}

type aggregateRequest struct {
	Viewport   viewportDTO    `json:"viewport"`
	Zoom       float64        `json:"zoom"`
	Conditions []conditionDTO `json:"conditions"`
	MaxSamples int            `json:"max_samples"`
}

type pathsRequest struct {
	Conditions []conditionDTO `json:"conditions"`
}

type pathsResponse struct {
	Count int      `json:"count"`
	Paths []string `json:"paths"`
}

type bucketDTO struct {
	Cell      string   `json:"cell"`
	CenterLat float64  `json:"center_lat"`
	CenterLon float64  `json:"center_lon"`
	Count     int64    `json:"count"`
	SampleIDs []string `json:"sample_ids"`
}

type aggregateResponse struct {
	Depth   int         `json:"depth"`
	Total   int64       `json:"total"`
	Buckets []bucketDTO `json:"buckets"`
	Warning string      `json:"warning,omitempty"`
}

func bucketsToDTO(bb []bucket.GeoBucket) []bucketDTO {
	out := make([]bucketDTO, len(bb))
	for i, b := range bb {
		c := b.Center()
		out[i] = bucketDTO{Cell: b.Cell(), CenterLat: c.Lat, CenterLon: c.Lon, Count: b.Count(), SampleIDs: b.SampleIDs()}
	}
	return out
}

type lookupRequest struct {
	IDs []string `json:"ids"`
}

type rowDTO struct {
	ID             string   `json:"id"`
	DisplayName    string   `json:"display_name"`
	CollectionName string   `json:"collection_name"`
	Altitude       *float64 `json:"altitude"`
	CameraModel    string   `json:"camera_model"`
	TakenAt        string   `json:"taken_at"`
}

func rowsToDTO(rows []domimg.Row) []rowDTO {
	out := make([]rowDTO, len(rows))
	for i, r := range rows {
		d := rowDTO{
			ID:             r.ID,
			DisplayName:    r.DisplayName,
			CollectionName: r.CollectionName,
			CameraModel:    r.CameraModel,
			TakenAt:        r.TakenAt.UTC().Format(time.RFC3339),
		}
		if r.HasAltitude() {
			alt := r.Altitude
			d.Altitude = &alt
		}
		out[i] = d
	}
	return out
}

type detectRequest struct {
	Points []pointDTO `json:"points"`
}

type matchDTO struct {
	Code  string `json:"code,omitempty"`
	Found bool   `json:"found"`
}

type siteDTO struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Type      string     `json:"type,omitempty"`
	State     string     `json:"state,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	CenterLat float64    `json:"center_lat"`
	CenterLon float64    `json:"center_lon"`
	Boundary  []pointDTO `json:"boundary"`
}

func siteToDTO(s domsite.Site) siteDTO {
	c := s.Center()
	return siteDTO{
		Code: s.Code(), Name: s.Name(), Type: s.Type(), State: s.State(), Domain: s.Domain(),
		CenterLat: c.Lat, CenterLon: c.Lon, Boundary: ringToDTO(s.Boundary()),
	}
}

func siteFromDTO(d siteDTO) (domsite.Site, error) {
	s, err := domsite.New(d.Code, geo.Point{Lat: d.CenterLat, Lon: d.CenterLon}, geo.Ring(pointsFromDTO(d.Boundary)),
		domsite.Details{Name: d.Name, Type: d.Type, State: d.State, Domain: d.Domain})
	if err != nil {
		return domsite.Site{}, fmt.Errorf("site %q: %w: %w", d.Code, domain.ErrInvalidInput, err)
	}
	return s, nil
}

type collectionDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Description  string `json:"description,omitempty"`
}

func collectionToDTO(c domcol.Collection) collectionDTO {
	return collectionDTO{ID: c.ID(), Name: c.Name(), Organization: c.Organization(), Contact: c.Contact(), Description: c.Description()}
}

type imageItemDTO struct {
	ID           string    `json:"id,omitempty"`
	CollectionID string    `json:"collection_id"`
	StoragePath  string    `json:"storage_path"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Altitude     *float64  `json:"altitude,omitempty"`
	CameraModel  string    `json:"camera_model,omitempty"`
	DroneMaker   string    `json:"drone_maker,omitempty"`
	TakenAt      time.Time `json:"taken_at"`
	SiteCode     string    `json:"site_code,omitempty"`
}

func (d imageItemDTO) item() batchuc.Item {
	return batchuc.Item{
		ID: d.ID, CollectionID: d.CollectionID, StoragePath: d.StoragePath,
		Lat: d.Lat, Lon: d.Lon, Altitude: d.Altitude,
		CameraModel: d.CameraModel, DroneMaker: d.DroneMaker, TakenAt: d.TakenAt, SiteCode: d.SiteCode,
	}
}

type indexRequest struct {
	Items []imageItemDTO `json:"items"`
}

type batchResultDTO struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type indexResponse struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []batchResultDTO `json:"items"`
}

func batchResultToDTO(r dombatch.Result) batchResultDTO {
	d := batchResultDTO{ID: r.ID(), Status: string(r.Status())}
	if r.Err() != nil {
		d.Error = &errorResponse{Code: batchErrorCode(r.Err()), Message: safeDomainMessage(r.Err())}
	}
	return d
}

type createSessionRequest struct {
	MaxSamples int `json:"max_samples"`
}

type sessionViewportRequest struct {
	Viewport viewportDTO `json:"viewport"`
	Zoom     float64     `json:"zoom"`
}

type sessionConditionsRequest struct {
	Conditions []conditionDTO `json:"conditions"`
}

type markerDTO struct {
	ID        int      `json:"id"`
	Cell      string   `json:"cell"`
	CenterLat float64  `json:"center_lat"`
	CenterLon float64  `json:"center_lon"`
	Count     int64    `json:"count"`
	SampleIDs []string `json:"sample_ids"`
	Selected  bool     `json:"selected"`
}

type sessionSiteDTO struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Shape     string     `json:"shape"`
	CenterLat float64    `json:"center_lat"`
	CenterLon float64    `json:"center_lon"`
	Boundary  []pointDTO `json:"boundary,omitempty"`
}

type sessionResponse struct {
	ID         string           `json:"id"`
	Viewport   *viewportDTO     `json:"viewport,omitempty"`
	Zoom       float64          `json:"zoom"`
	Depth      int              `json:"depth"`
	Conditions []conditionDTO   `json:"conditions"`
	Markers    []markerDTO      `json:"markers"`
	Selected   int              `json:"selected"`
	Rows       []rowDTO         `json:"rows"`
	Sites      []sessionSiteDTO `json:"sites"`
	DrawOrder  []string         `json:"draw_order"`
	Busy       bool             `json:"busy"`
	Error      string           `json:"error,omitempty"`
	Version    uint64           `json:"version"`
}

func sessionToDTO(v mapview.View, conditions []query.Entry) sessionResponse {
	resp := sessionResponse{
		ID:         v.ID,
		Zoom:       v.Viewport.Zoom,
		Depth:      v.Depth,
		Conditions: conditionsToDTO(conditions),
		Markers:    make([]markerDTO, len(v.Markers)),
		Selected:   v.Selected,
		Rows:       rowsToDTO(v.Rows),
		Sites:      make([]sessionSiteDTO, len(v.Sites)),
		DrawOrder:  v.DrawOrder,
		Busy:       v.Busy,
		Version:    v.Version,
	}
	if v.HasViewport {
		vp := viewportToDTO(v.Viewport.Box)
		resp.Viewport = &vp
	}
	for i, m := range v.Markers {
		resp.Markers[i] = markerDTO{
			ID: m.ID, Cell: m.Cell, CenterLat: m.Center.Lat, CenterLon: m.Center.Lon,
			Count: m.Count, SampleIDs: m.SampleIDs, Selected: m.Selected,
		}
	}
	for i, s := range v.Sites {
		d := sessionSiteDTO{Code: s.Code, Name: s.Name, Shape: "pin", CenterLat: s.Center.Lat, CenterLon: s.Center.Lon}
		if s.Polygon {
			d.Shape = "polygon"
			d.Boundary = ringToDTO(s.Boundary)
		}
		resp.Sites[i] = d
	}
	if v.Err != nil {
		resp.Error = safeDomainMessage(v.Err)
	}
	return resp
}
