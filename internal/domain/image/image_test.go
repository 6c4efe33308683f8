package image

import (
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

func TestNew_Validation(t *testing.T) {
	p := geo.Point{Lat: 40.05, Lon: -105.58}
	tests := []struct {
		name    string
		id      string
		col     string
		path    string
		pos     geo.Point
		wantErr bool
	}{
		{"valid", "img-1", "col", "a/b.jpg", p, false},
		{"no id", "", "col", "a/b.jpg", p, true},
		{"no collection", "img-1", "", "a/b.jpg", p, true},
		{"no path", "img-1", "col", "", p, true},
		{"bad position", "img-1", "col", "a/b.jpg", geo.Point{Lat: 91}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.id, tc.col, tc.path, tc.pos, Attributes{})
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMetadata_Accessors(t *testing.T) {
	taken := time.Date(2019, 6, 1, 12, 0, 0, 0, time.FixedZone("MDT", -6*3600))
	m, err := New("img-1", "col", "uploads/col/DJI_0001.JPG", geo.Point{Lat: 40.05, Lon: -105.58}, Attributes{
		Altitude: math.NaN(), CameraModel: "FC6310", TakenAt: taken,
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.TakenAt().Location() != time.UTC {
		t.Error("capture time should be normalized to UTC")
	}
	if len(m.Geohash()) != geo.StoredPrecision {
		t.Errorf("geohash = %q", m.Geohash())
	}
	if m.WithSiteCode("NIWO").SiteCode() != "NIWO" || m.SiteCode() != "" {
		t.Error("WithSiteCode must not mutate the receiver")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("uploads/col/DJI_0001.JPG"); got != "DJI_0001.JPG" {
		t.Errorf("got %q", got)
	}
	if got := DisplayName("plain.jpg"); got != "plain.jpg" {
		t.Errorf("got %q", got)
	}
	if DisplayName("") != "" {
		t.Error("empty path should have empty name")
	}
}
