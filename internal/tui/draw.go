package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
)

var (
	gridStyle   = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	labelStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	frameStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	statusStyle = tcell.StyleDefault.Reverse(true)
)

// gridLines is the rough number of graticule lines per axis.
const gridLines = 6

// Draw repaints the whole screen.
func (a *App) Draw() {
	a.screen.Clear()
	a.drawGraticule()
	a.drawFrame()
	a.drawStatus()
	a.screen.Show()
}

func (a *App) drawGraticule() {
	w, _ := a.screen.Size()
	rows := a.mapRows()
	if w == 0 || rows == 0 {
		return
	}

	latTop, lngLeft := a.proj.ContainerToLatLng(0, 0)
	latBottom, lngRight := a.proj.ContainerToLatLng(a.toPixel(w, rows))
	lngStep := niceStep((lngRight - lngLeft) / gridLines)
	latStep := niceStep((latTop - latBottom) / gridLines)

	vertical := make([]bool, w)
	for col := range w {
		_, l0 := a.proj.ContainerToLatLng(a.toPixel(col, 0))
		_, l1 := a.proj.ContainerToLatLng(a.toPixel(col+1, 0))
		vertical[col] = crosses(l0, l1, lngStep)
	}
	for row := range rows {
		la0, _ := a.proj.ContainerToLatLng(a.toPixel(0, row))
		la1, _ := a.proj.ContainerToLatLng(a.toPixel(0, row+1))
		horizontal := crosses(la1, la0, latStep)
		for col := range w {
			switch {
			case horizontal && vertical[col]:
				a.screen.SetContent(col, row, '┼', nil, gridStyle)
			case horizontal:
				a.screen.SetContent(col, row, '─', nil, gridStyle)
			case vertical[col]:
				a.screen.SetContent(col, row, '│', nil, gridStyle)
			}
		}
		if horizontal {
			a.putString(1, row, fmt.Sprintf("%.4f", gridValue(la0, latStep)), labelStyle)
		}
	}
	for col := range w {
		if vertical[col] {
			_, l1 := a.proj.ContainerToLatLng(a.toPixel(col+1, 0))
			a.putString(col+1, 0, fmt.Sprintf("%.4f", gridValue(l1, lngStep)), labelStyle)
		}
	}
}

func (a *App) drawFrame() {
	a.mu.Lock()
	f := a.frame
	a.mu.Unlock()
	if !f.Enabled {
		return
	}
	n := f.Normalized()
	w, _ := a.screen.Size()
	rows := a.mapRows()

	c0 := clamp(int(n.X)/a.cfg.CellPxW, 0, w-1)
	c1 := clamp(int(n.X+n.Width)/a.cfg.CellPxW, 0, w-1)
	r0 := clamp(int(n.Y)/a.cfg.CellPxH, 0, rows-1)
	r1 := clamp(int(n.Y+n.Height)/a.cfg.CellPxH, 0, rows-1)

	for c := c0; c <= c1; c++ {
		a.screen.SetContent(c, r0, '─', nil, frameStyle)
		a.screen.SetContent(c, r1, '─', nil, frameStyle)
	}
	for r := r0; r <= r1; r++ {
		a.screen.SetContent(c0, r, '│', nil, frameStyle)
		a.screen.SetContent(c1, r, '│', nil, frameStyle)
	}
	a.screen.SetContent(c0, r0, '┌', nil, frameStyle)
	a.screen.SetContent(c1, r0, '┐', nil, frameStyle)
	a.screen.SetContent(c0, r1, '└', nil, frameStyle)
	a.screen.SetContent(c1, r1, '┘', nil, frameStyle)
}

func (a *App) drawStatus() {
	w, h := a.screen.Size()
	if h == 0 {
		return
	}
	a.mu.Lock()
	status := a.status
	a.mu.Unlock()

	vp := a.proj.Viewport()
	line := fmt.Sprintf(" [%s] %.4f,%.4f z%d | %s | q: quit",
		a.ctrl.State(), vp.Lat, vp.Lng, vp.Zoom, status)
	for col := range w {
		a.screen.SetContent(col, h-1, ' ', nil, statusStyle)
	}
	a.putString(0, h-1, line, statusStyle)
}

func (a *App) putString(col, row int, s string, style tcell.Style) {
	w, _ := a.screen.Size()
	for _, r := range s {
		if col >= w {
			return
		}
		a.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	raw = math.Abs(raw)
	if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / exp; {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

// crosses reports whether a multiple of step lies in [lo, hi).
func crosses(lo, hi, step float64) bool {
	return math.Floor(lo/step) != math.Floor(hi/step)
}

// gridValue is the graticule value crossed just below hi.
func gridValue(hi, step float64) float64 {
	return math.Floor(hi/step) * step
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
