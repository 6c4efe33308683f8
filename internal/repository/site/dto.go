package site

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
)

// siteFields are the index fields loaded to rebuild a site.
var siteFields = []string{
	domsite.FieldCode,
	domsite.FieldName,
	domsite.FieldType,
	domsite.FieldState,
	domsite.FieldDomain,
	domsite.FieldLat,
	domsite.FieldLon,
	domsite.FieldBoundary,
}

// siteDoc is the stored JSON shape of a site.
type siteDoc struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	State    string  `json:"state"`
	Domain   string  `json:"domain"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Boundary string  `json:"boundary"`
}

func toDoc(s domsite.Site) (siteDoc, error) {
	boundary, err := s.Boundary().WKT()
	if err != nil {
		return siteDoc{}, fmt.Errorf("site %s boundary: %w", s.Code(), err)
	}
	return siteDoc{
		Code:     s.Code(),
		Name:     s.Name(),
		Type:     s.Type(),
		State:    s.State(),
		Domain:   s.Domain(),
		Lat:      s.Center().Lat,
		Lon:      s.Center().Lon,
		Boundary: boundary,
	}, nil
}

// fromFields rebuilds a site from loaded index fields.
func fromFields(m map[string]string) (domsite.Site, error) {
	lat, err := strconv.ParseFloat(m[domsite.FieldLat], 64)
	if err != nil {
		return domsite.Site{}, fmt.Errorf("invalid lat: %w", err)
	}
	lon, err := strconv.ParseFloat(m[domsite.FieldLon], 64)
	if err != nil {
		return domsite.Site{}, fmt.Errorf("invalid lon: %w", err)
	}
	boundary, err := geo.ParseWKT(m[domsite.FieldBoundary])
	if err != nil {
		return domsite.Site{}, fmt.Errorf("invalid boundary: %w", err)
	}
	return domsite.New(m[domsite.FieldCode], geo.Point{Lat: lat, Lon: lon}, boundary, domsite.Details{
		Name:   m[domsite.FieldName],
		Type:   m[domsite.FieldType],
		State:  m[domsite.FieldState],
		Domain: m[domsite.FieldDomain],
	})
}
