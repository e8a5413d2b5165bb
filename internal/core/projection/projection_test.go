package projection

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestContainerCenter_IsViewportCenter(t *testing.T) {
	vp := model.DefaultViewport()
	m := NewMercator(vp, 800, 600)

	lat, lng := m.ContainerToLatLng(400, 300)
	if !near(lat, vp.Lat, 1e-9) || !near(lng, vp.Lng, 1e-9) {
		t.Fatalf("center=(%f,%f) want (%f,%f)", lat, lng, vp.Lat, vp.Lng)
	}
}

func TestRoundTrip(t *testing.T) {
	m := NewMercator(model.DefaultViewport(), 640, 480)
	for _, p := range [][2]float64{{0, 0}, {100, 50}, {639, 479}, {-20, 900}} {
		lat, lng := m.ContainerToLatLng(p[0], p[1])
		x, y := m.LatLngToContainer(lat, lng)
		if !near(x, p[0], 1e-6) || !near(y, p[1], 1e-6) {
			t.Fatalf("roundtrip %v -> (%f,%f) -> (%f,%f)", p, lat, lng, x, y)
		}
	}
}

func TestAxes_EastAndSouthGrowPixels(t *testing.T) {
	m := NewMercator(model.DefaultViewport(), 800, 600)
	lat1, lng1 := m.ContainerToLatLng(100, 100)
	lat2, lng2 := m.ContainerToLatLng(200, 200)
	if lng2 <= lng1 {
		t.Fatalf("lng must grow to the right: %f -> %f", lng1, lng2)
	}
	if lat2 >= lat1 {
		t.Fatalf("lat must shrink downwards: %f -> %f", lat1, lat2)
	}
}

func TestZoom13_PixelScale(t *testing.T) {
	// at zoom 13 one pixel spans 360/(256*8192) degrees of longitude
	m := NewMercator(model.Viewport{Lat: 0, Lng: 0, Zoom: 13}, 256, 256)
	_, lng1 := m.ContainerToLatLng(0, 0)
	_, lng2 := m.ContainerToLatLng(1, 0)
	want := 360.0 / (256 * 8192)
	if !near(lng2-lng1, want, 1e-12) {
		t.Fatalf("dlng=%g want %g", lng2-lng1, want)
	}
}

func TestResize_KeepsCenter(t *testing.T) {
	vp := model.DefaultViewport()
	m := NewMercator(vp, 100, 100)
	m.Resize(1000, 400)
	lat, lng := m.ContainerToLatLng(500, 200)
	if !near(lat, vp.Lat, 1e-9) || !near(lng, vp.Lng, 1e-9) {
		t.Fatalf("center moved after resize: (%f,%f)", lat, lng)
	}
}
