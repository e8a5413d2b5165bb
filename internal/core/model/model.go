// Package model defines core domain types shared across the module.
package model

import (
	"fmt"
	"math"
)

// Resolution is the fixed resolution parameter sent with every data request.
const Resolution = 50

type Viewport struct {
	Lat  float64
	Lng  float64
	Zoom int
}

// DefaultViewport is the map center used when nothing is configured.
func DefaultViewport() Viewport {
	return Viewport{Lat: 51.505, Lng: -0.09, Zoom: 13}
}

// Frame is the pixel-space selection rectangle. Width and Height may be
// negative when the pointer moved up or left of the anchor.
type Frame struct {
	X, Y          float64
	Width, Height float64
	Enabled       bool
}

// Normalized returns the frame with non-negative size and the anchor moved
// to the top-left corner.
func (f Frame) Normalized() Frame {
	out := f
	if out.Width < 0 {
		out.X += out.Width
		out.Width = -out.Width
	}
	if out.Height < 0 {
		out.Y += out.Height
		out.Height = -out.Height
	}
	return out
}

// Area is the geographic counterpart of a Frame: anchor lat/lng plus
// width (lng delta) and height (lat delta, positive southwards).
type Area struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (a Area) IsZero() bool {
	return a.Width == 0 && a.Height == 0
}

// BBox converts the area to a normalized EPSG:4326 bounding box.
func (a Area) BBox() BBox {
	x1, x2 := a.Lng, a.Lng+a.Width
	y1, y2 := a.Lat-a.Height, a.Lat
	return BBox{
		X1:   math.Min(x1, x2),
		Y1:   math.Min(y1, y2),
		X2:   math.Max(x1, x2),
		Y2:   math.Max(y1, y2),
		SRID: "EPSG:4326",
	}
}

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching wfs/wms bbox format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}

type Cells []string

// AreaQuery is a parsed data request: the area plus the sampling resolution.
type AreaQuery struct {
	Area       Area
	Resolution int
}
