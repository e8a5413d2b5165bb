// Package tui is the terminal front-end: a tcell screen showing a map
// graticule, the live selection frame and a status line.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/mohammed-shakir/map-area-select/internal/areaselect"
	"github.com/mohammed-shakir/map-area-select/internal/core/model"
	"github.com/mohammed-shakir/map-area-select/internal/core/projection"
)

type Config struct {
	Viewport model.Viewport
	CellPxW  int
	CellPxH  int
}

type App struct {
	screen tcell.Screen
	logger *slog.Logger
	cfg    Config
	proj   *projection.Mercator
	hub    *areaselect.PointerHub
	ctrl   *areaselect.Controller

	lastButtons tcell.ButtonMask

	mu      sync.Mutex
	frame   model.Frame
	loading bool
	status  string
}

// New wires a controller to screen. The screen must already be initialized.
func New(screen tcell.Screen, fetcher areaselect.Fetcher, cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.CellPxW <= 0 {
		cfg.CellPxW = 8
	}
	if cfg.CellPxH <= 0 {
		cfg.CellPxH = 16
	}
	a := &App{
		screen: screen,
		logger: logger,
		cfg:    cfg,
		hub:    areaselect.NewPointerHub(),
		status: "click the map to start a selection",
	}
	w, h := a.mapPixels()
	a.proj = projection.NewMercator(cfg.Viewport, w, h)

	ctrl, err := areaselect.New(fetcher, a.onData,
		areaselect.WithViewport(cfg.Viewport),
		areaselect.WithOverlay(a),
		areaselect.WithPointerSource(a.hub),
		areaselect.WithFetchInit(a.onFetchInit),
		areaselect.WithDispatcher(a.dispatch),
		areaselect.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	a.ctrl = ctrl
	screen.EnableMouse(tcell.MouseMotionEvents)
	return a, nil
}

func (a *App) Controller() *areaselect.Controller { return a.ctrl }

// Run polls screen events until ctx is done or the user quits.
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	a.Draw()
	defer a.ctrl.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}
			a.Draw()
		}
	}
}

// HandleEvent applies one screen event; it returns false on quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return false
		}
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		w, h := a.mapPixels()
		a.proj.Resize(w, h)
		a.screen.Sync()
	case *tcell.EventInterrupt:
		if fn, ok := ev.Data().(func()); ok {
			fn()
		}
	}
	return true
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	col, row := ev.Position()
	btn := ev.Buttons()
	pressed := btn&tcell.Button1 != 0 && a.lastButtons&tcell.Button1 == 0
	a.lastButtons = btn

	x, y := a.toPixel(col, row)
	a.hub.Emit(x, y)

	if !pressed || !a.onMap(row) {
		return
	}
	lat, lng := a.proj.ContainerToLatLng(x, y)
	a.ctrl.HandleMapClick(areaselect.Click{X: x, Y: y, Lat: lat, Lng: lng})
}

// DrawFrame records the frame to paint on the next Draw.
func (a *App) DrawFrame(f model.Frame) {
	a.mu.Lock()
	a.frame = f
	a.mu.Unlock()
}

func (a *App) ClearFrame() {
	a.mu.Lock()
	a.frame = model.Frame{}
	a.mu.Unlock()
}

func (a *App) onFetchInit() {
	a.mu.Lock()
	a.loading = true
	a.status = "loading..."
	a.mu.Unlock()
}

func (a *App) onData(data json.RawMessage) {
	a.mu.Lock()
	a.loading = false
	a.status = summarize(data)
	a.mu.Unlock()
	a.logger.Info("area data received", "bytes", len(data))
}

func (a *App) dispatch(fn func()) {
	if err := a.screen.PostEvent(tcell.NewEventInterrupt(fn)); err != nil {
		a.logger.Warn("dropped data delivery", "err", err)
	}
}

func (a *App) toPixel(col, row int) (float64, float64) {
	return float64(col * a.cfg.CellPxW), float64(row * a.cfg.CellPxH)
}

func (a *App) mapRows() int {
	_, h := a.screen.Size()
	if h <= 1 {
		return h
	}
	return h - 1
}

func (a *App) onMap(row int) bool {
	return row >= 0 && row < a.mapRows()
}

func (a *App) mapPixels() (float64, float64) {
	w, _ := a.screen.Size()
	return float64(w * a.cfg.CellPxW), float64(a.mapRows() * a.cfg.CellPxH)
}

// summarize describes a data payload for the status line.
func summarize(data json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Sprintf("received %d bytes", len(data))
	}
	if raw, ok := obj["cells"]; ok {
		var cells []string
		if json.Unmarshal(raw, &cells) == nil {
			return fmt.Sprintf("received %d bytes, %d cells", len(data), len(cells))
		}
	}
	return fmt.Sprintf("received %d bytes, %d fields", len(data), len(obj))
}
