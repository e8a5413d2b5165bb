// Package projection converts between map container pixels and geographic
// coordinates for a fixed viewport using spherical Web Mercator.
package projection

import (
	"math"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

const (
	TileSize = 256
	maxLat   = 85.05112878
)

type Mercator struct {
	vp     model.Viewport
	width  float64
	height float64
	// global pixel of the container's top-left corner
	originX, originY float64
}

func NewMercator(vp model.Viewport, width, height float64) *Mercator {
	m := &Mercator{vp: vp}
	m.Resize(width, height)
	return m
}

func (m *Mercator) Viewport() model.Viewport { return m.vp }

func (m *Mercator) Size() (float64, float64) { return m.width, m.height }

// Resize changes the container size; the viewport center stays put.
func (m *Mercator) Resize(width, height float64) {
	m.width, m.height = width, height
	cx, cy := project(m.vp.Lat, m.vp.Lng, worldSize(m.vp.Zoom))
	m.originX = cx - width/2
	m.originY = cy - height/2
}

func (m *Mercator) ContainerToLatLng(x, y float64) (lat, lng float64) {
	return unproject(m.originX+x, m.originY+y, worldSize(m.vp.Zoom))
}

func (m *Mercator) LatLngToContainer(lat, lng float64) (x, y float64) {
	gx, gy := project(lat, lng, worldSize(m.vp.Zoom))
	return gx - m.originX, gy - m.originY
}

func worldSize(zoom int) float64 {
	return TileSize * math.Exp2(float64(zoom))
}

func project(lat, lng, ws float64) (float64, float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	x := (lng + 180) / 360 * ws
	s := math.Sin(lat * math.Pi / 180)
	y := (0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)) * ws
	return x, y
}

func unproject(x, y, ws float64) (float64, float64) {
	lng := x/ws*360 - 180
	n := math.Pi - 2*math.Pi*y/ws
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return lat, lng
}
