// Package areaselect implements the two-click map area selection: the first
// click anchors a frame, pointer moves resize it, the second click commits the
// geographic area and fetches data for it.
package areaselect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
	"github.com/mohammed-shakir/map-area-select/internal/logger"
)

// State is the selection gesture state.
type State int

const (
	Idle State = iota
	Selecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	default:
		return "unknown"
	}
}

// Click is a map click: container pixel point plus its geographic position.
type Click struct {
	X, Y     float64
	Lat, Lng float64
}

type Fetcher interface {
	Fetch(ctx context.Context, a model.Area) (json.RawMessage, error)
}

// Overlay draws the selection frame. It is called with the controller lock
// held and must not call back into the controller.
type Overlay interface {
	DrawFrame(f model.Frame)
	ClearFrame()
}

type PointerSource interface {
	Subscribe(fn func(x, y float64)) (detach func())
}

type DataFunc func(data json.RawMessage)

// Dispatcher runs fn on the caller's event goroutine.
type Dispatcher func(fn func())

type Option func(*Controller)

func WithFetchInit(fn func()) Option {
	return func(c *Controller) { c.onInit = fn }
}

func WithOverlay(o Overlay) Option {
	return func(c *Controller) { c.overlay = o }
}

func WithPointerSource(p PointerSource) Option {
	return func(c *Controller) { c.pointer = p }
}

func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.dispatch = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithViewport(vp model.Viewport) Option {
	return func(c *Controller) { c.viewport = vp }
}

type task struct {
	gesture string
	gen     uint64
	cancel  context.CancelFunc
}

// Controller owns one selection gesture at a time and the fetch started by
// its commit. All methods are safe for concurrent use.
type Controller struct {
	logger   *slog.Logger
	viewport model.Viewport
	fetcher  Fetcher
	onData   DataFunc
	onInit   func()
	overlay  Overlay
	pointer  PointerSource
	dispatch Dispatcher

	mu        sync.Mutex
	state     State
	frame     model.Frame
	area      model.Area
	gestureID string
	gen       uint64
	detach    func()
	inflight  *task
	closed    bool

	wg sync.WaitGroup
}

// New returns an Idle controller. fetcher and onData are required.
func New(fetcher Fetcher, onData DataFunc, opts ...Option) (*Controller, error) {
	if fetcher == nil {
		return nil, errors.New("areaselect: fetcher is required")
	}
	if onData == nil {
		return nil, errors.New("areaselect: data callback is required")
	}
	c := &Controller{
		logger:   slog.New(slog.DiscardHandler),
		viewport: model.DefaultViewport(),
		fetcher:  fetcher,
		onData:   onData,
		dispatch: func(fn func()) { fn() },
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Controller) Viewport() model.Viewport { return c.viewport }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Frame() model.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *Controller) Area() model.Area {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.area
}

// HandleMapClick toggles between Idle and Selecting. The committing click
// starts the fetch for the completed area.
func (c *Controller) HandleMapClick(ev Click) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.state == Idle {
		c.beginGesture(ev)
		c.mu.Unlock()
		return
	}
	area, gesture := c.commitGesture(ev)
	ctx, t := c.startTask(gesture)
	c.mu.Unlock()

	c.fetchDataInit()
	go c.fetchData(ctx, t, area)
}

// HandlePointerMove resizes the frame; it does nothing unless Selecting.
func (c *Controller) HandlePointerMove(clientX, clientY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Selecting {
		return
	}
	c.frame.Width = clientX - c.frame.X
	c.frame.Height = clientY - c.frame.Y
	if c.overlay != nil {
		c.overlay.DrawFrame(c.frame)
	}
}

// Wait blocks until every started fetch has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close ends any gesture, cancels the in-flight fetch and waits for it.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.closed = true
	c.gen++
	if c.state == Selecting {
		c.state = Idle
		c.frame.Enabled = false
		c.releasePointer()
		if c.overlay != nil {
			c.overlay.ClearFrame()
		}
	}
	c.supersede()
	c.mu.Unlock()

	c.wg.Wait()
}

// must hold c.mu
func (c *Controller) beginGesture(ev Click) {
	c.supersede()

	c.state = Selecting
	c.gen++
	c.gestureID = logger.NewID()
	c.frame = model.Frame{X: ev.X, Y: ev.Y, Enabled: true}
	c.area = model.Area{Lat: ev.Lat, Lng: ev.Lng}

	if c.pointer != nil {
		c.detach = c.pointer.Subscribe(c.HandlePointerMove)
	}
	if c.overlay != nil {
		c.overlay.DrawFrame(c.frame)
	}
	observability.IncGesture("start")
	c.logger.Debug("gesture started",
		"gesture_id", c.gestureID,
		"x", ev.X, "y", ev.Y,
		"lat", ev.Lat, "lng", ev.Lng)
}

// must hold c.mu
func (c *Controller) commitGesture(ev Click) (model.Area, string) {
	c.state = Idle
	c.frame.X, c.frame.Y = ev.X, ev.Y
	c.frame.Enabled = false
	c.area.Width = ev.Lng - c.area.Lng
	c.area.Height = c.area.Lat - ev.Lat

	c.releasePointer()
	if c.overlay != nil {
		c.overlay.ClearFrame()
	}
	observability.IncGesture("commit")
	c.logger.Debug("gesture committed",
		"gesture_id", c.gestureID,
		"lat", c.area.Lat, "lng", c.area.Lng,
		"width", c.area.Width, "height", c.area.Height)
	return c.area, c.gestureID
}

// must hold c.mu
func (c *Controller) releasePointer() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// must hold c.mu
func (c *Controller) supersede() {
	if c.inflight == nil {
		return
	}
	c.inflight.cancel()
	c.inflight = nil
}

// must hold c.mu
func (c *Controller) startTask(gesture string) (context.Context, *task) {
	c.supersede()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithGestureID(ctx, gesture)
	t := &task{gesture: gesture, gen: c.gen, cancel: cancel}
	c.inflight = t
	c.wg.Add(1)
	return ctx, t
}

func (c *Controller) fetchDataInit() {
	if c.onInit != nil {
		c.onInit()
	}
}

func (c *Controller) fetchData(ctx context.Context, t *task, area model.Area) {
	defer c.wg.Done()
	defer t.cancel()

	data, err := c.fetcher.Fetch(ctx, area)

	c.mu.Lock()
	current := c.inflight == t
	if current {
		c.inflight = nil
	}
	c.mu.Unlock()

	if ctx.Err() != nil || !current {
		observability.IncFetch("superseded")
		c.logger.DebugContext(ctx, "fetch superseded", "gesture_id", t.gesture)
		return
	}
	if err != nil {
		observability.IncFetch("error")
		c.logger.ErrorContext(ctx, "error fetching data", "err", err.Error())
		return
	}
	c.dispatch(func() { c.deliver(t, data) })
}

// deliver runs on the dispatcher's goroutine; a gesture started after the
// fetch finished makes its result stale.
func (c *Controller) deliver(t *task, data json.RawMessage) {
	c.mu.Lock()
	stale := c.gen != t.gen
	c.mu.Unlock()
	if stale {
		observability.IncFetch("superseded")
		c.logger.Debug("stale fetch result dropped", "gesture_id", t.gesture)
		return
	}
	observability.IncFetch("ok")
	c.onData(data)
}
