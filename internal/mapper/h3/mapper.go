package h3mapper

import (
	"errors"
	"fmt"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

const kmPerDegree = 111.32

// average hexagon area in km2 per resolution (H3 reference table)
var avgHexAreaKm2 = [16]float64{
	4357449.416078383, 609788.441794133, 86801.780398997, 12393.434655088,
	1770.347654491, 252.903858182, 36.129062164, 5.161293360,
	0.737327598, 0.105332513, 0.015047502, 0.002149643,
	0.000307092, 0.000043870, 0.000006267, 0.000000895,
}

// Coverage is the set of cells covering a bbox.
type Coverage struct {
	Res       int
	Cells     model.Cells
	Truncated bool
}

type Mapper struct {
	maxCells int
}

func New(maxCells int) *Mapper {
	if maxCells <= 0 {
		maxCells = 4096
	}
	return &Mapper{maxCells: maxCells}
}

// CellsForBBox covers bb with cells at res, coarsening the resolution when
// the estimated count exceeds the cap. A degenerate or sub-cell bbox yields
// the single cell containing its center.
func (m *Mapper) CellsForBBox(bb model.BBox, res int) (Coverage, error) {
	if err := validateRes(res); err != nil {
		return Coverage{}, err
	}
	res = m.fitRes(bb, res)

	if bb.X1 == bb.X2 || bb.Y1 == bb.Y2 {
		return m.centerCell(bb, res)
	}

	// rectangular loop (lon,lat in EPSG:4326); v4 wants degrees
	outer := h3.GeoLoop{
		{Lat: bb.Y1, Lng: bb.X1},
		{Lat: bb.Y1, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X1},
	}
	cells, err := polyfill(outer, res)
	if err != nil {
		return Coverage{}, err
	}
	if len(cells) == 0 {
		return m.centerCell(bb, res)
	}
	cov := Coverage{Res: res, Cells: cells}
	if len(cov.Cells) > m.maxCells {
		cov.Cells = cov.Cells[:m.maxCells]
		cov.Truncated = true
	}
	return cov, nil
}

func (m *Mapper) CellForPoint(lat, lng float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lng}, res)
	if err != nil {
		return "", fmt.Errorf("h3 latlng to cell: %w", err)
	}
	return c.String(), nil
}

func (m *Mapper) centerCell(bb model.BBox, res int) (Coverage, error) {
	c, err := m.CellForPoint((bb.Y1+bb.Y2)/2, (bb.X1+bb.X2)/2, res)
	if err != nil {
		return Coverage{}, err
	}
	return Coverage{Res: res, Cells: model.Cells{c}}, nil
}

// lowers res until the estimated cell count fits the cap
func (m *Mapper) fitRes(bb model.BBox, res int) int {
	area := bboxAreaKm2(bb)
	for res > 0 && area/avgHexAreaKm2[res] > float64(m.maxCells) {
		res--
	}
	return res
}

func bboxAreaKm2(bb model.BBox) float64 {
	midLat := (bb.Y1 + bb.Y2) / 2 * math.Pi / 180
	h := (bb.Y2 - bb.Y1) * kmPerDegree
	w := (bb.X2 - bb.X1) * kmPerDegree * math.Cos(midLat)
	return math.Abs(h * w)
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// polyfill computes unique cells and returns them sorted for determinism.
func polyfill(outer h3.GeoLoop, res int) (model.Cells, error) {
	if len(outer) < 4 {
		return nil, errors.New("outer ring has < 4 vertices")
	}
	indexes, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make([]string, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
