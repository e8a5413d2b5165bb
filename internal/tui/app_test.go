package tui

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/mohammed-shakir/map-area-select/internal/areaselect"
	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

type recordingFetcher struct {
	mu    sync.Mutex
	areas []model.Area
}

func (f *recordingFetcher) Fetch(_ context.Context, a model.Area) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areas = append(f.areas, a)
	return json.RawMessage(`{"cells":["a","b","c"]}`), nil
}

func (f *recordingFetcher) calls() []model.Area {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Area(nil), f.areas...)
}

func newTestApp(t *testing.T) (*App, tcell.SimulationScreen, *recordingFetcher) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	t.Cleanup(s.Fini)
	s.SetSize(80, 25)

	f := &recordingFetcher{}
	app, err := New(s, f, Config{Viewport: model.DefaultViewport(), CellPxW: 8, CellPxH: 16}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(app.Controller().Close)
	return app, s, f
}

func mouse(col, row int, btn tcell.ButtonMask) *tcell.EventMouse {
	return tcell.NewEventMouse(col, row, btn, tcell.ModNone)
}

func runeAt(s tcell.SimulationScreen, col, row int) rune {
	r, _, _, _ := s.GetContent(col, row)
	return r
}

func rowText(s tcell.SimulationScreen, row int) string {
	w, _ := s.Size()
	var b strings.Builder
	for col := range w {
		b.WriteRune(runeAt(s, col, row))
	}
	return b.String()
}

// deliver feeds screen events back into the app until a dispatched
// callback has run.
func deliver(t *testing.T, app *App, s tcell.SimulationScreen) {
	t.Helper()
	for range 16 {
		ev := s.PollEvent()
		if ev == nil {
			t.Fatal("screen closed before delivery")
		}
		app.HandleEvent(ev)
		if _, ok := ev.(*tcell.EventInterrupt); ok {
			return
		}
	}
	t.Fatal("no interrupt event delivered")
}

func TestPress_StartsGesture(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.HandleEvent(mouse(10, 5, tcell.Button1))

	if got := app.Controller().State(); got != areaselect.Selecting {
		t.Fatalf("state=%v want selecting", got)
	}
	f := app.Controller().Frame()
	if f.X != 80 || f.Y != 80 || !f.Enabled {
		t.Fatalf("frame=%+v want anchor at (80,80)", f)
	}
}

func TestHeldButton_DoesNotClickTwice(t *testing.T) {
	app, _, f := newTestApp(t)

	app.HandleEvent(mouse(10, 5, tcell.Button1))
	app.HandleEvent(mouse(12, 6, tcell.Button1))

	if got := app.Controller().State(); got != areaselect.Selecting {
		t.Fatalf("drag must not commit; state=%v", got)
	}
	if n := len(f.calls()); n != 0 {
		t.Fatalf("fetches=%d want 0", n)
	}
}

func TestMotion_ResizesAndDrawsFrame(t *testing.T) {
	app, s, _ := newTestApp(t)

	app.HandleEvent(mouse(10, 5, tcell.Button1))
	app.HandleEvent(mouse(10, 5, tcell.ButtonNone))
	app.HandleEvent(mouse(20, 10, tcell.ButtonNone))
	app.Draw()

	fr := app.Controller().Frame()
	if fr.Width != 80 || fr.Height != 80 {
		t.Fatalf("frame=%+v want 80x80", fr)
	}
	if r := runeAt(s, 10, 5); r != '┌' {
		t.Fatalf("top-left=%q want ┌", r)
	}
	if r := runeAt(s, 20, 10); r != '┘' {
		t.Fatalf("bottom-right=%q want ┘", r)
	}
}

func TestMotion_UpLeftDrawsNormalizedFrame(t *testing.T) {
	app, s, _ := newTestApp(t)

	app.HandleEvent(mouse(20, 10, tcell.Button1))
	app.HandleEvent(mouse(20, 10, tcell.ButtonNone))
	app.HandleEvent(mouse(10, 5, tcell.ButtonNone))
	app.Draw()

	if fr := app.Controller().Frame(); fr.Width >= 0 || fr.Height >= 0 {
		t.Fatalf("raw frame should keep negative size: %+v", fr)
	}
	if r := runeAt(s, 10, 5); r != '┌' {
		t.Fatalf("top-left=%q want ┌", r)
	}
}

func TestSecondClick_FetchesAndDelivers(t *testing.T) {
	app, s, f := newTestApp(t)

	app.HandleEvent(mouse(10, 5, tcell.Button1))
	app.HandleEvent(mouse(10, 5, tcell.ButtonNone))
	app.HandleEvent(mouse(20, 10, tcell.Button1))
	app.Controller().Wait()

	lat1, lng1 := app.proj.ContainerToLatLng(80, 80)
	lat2, lng2 := app.proj.ContainerToLatLng(160, 160)
	want := model.Area{Lat: lat1, Lng: lng1, Width: lng2 - lng1, Height: lat1 - lat2}

	calls := f.calls()
	if len(calls) != 1 {
		t.Fatalf("fetches=%d want 1", len(calls))
	}
	if calls[0] != want {
		t.Fatalf("area=%+v want %+v", calls[0], want)
	}
	if got := app.Controller().State(); got != areaselect.Idle {
		t.Fatalf("state=%v want idle", got)
	}

	deliver(t, app, s)
	app.Draw()
	if line := rowText(s, 24); !strings.Contains(line, "3 cells") {
		t.Fatalf("status line=%q", line)
	}
	if r := runeAt(s, 10, 5); r == '┌' {
		t.Fatal("frame must be cleared after commit")
	}
}

func TestClickOnStatusLine_Ignored(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.HandleEvent(mouse(10, 24, tcell.Button1))

	if got := app.Controller().State(); got != areaselect.Idle {
		t.Fatalf("state=%v want idle", got)
	}
}

func TestMotionOnStatusLine_StillResizes(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.HandleEvent(mouse(10, 5, tcell.Button1))
	app.HandleEvent(mouse(15, 24, tcell.ButtonNone))

	if fr := app.Controller().Frame(); fr.Height != float64(24*16-80) {
		t.Fatalf("frame=%+v", fr)
	}
}

func TestKeys_Quit(t *testing.T) {
	app, _, _ := newTestApp(t)

	if app.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) != true {
		t.Fatal("x must not quit")
	}
	if app.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Fatal("q must quit")
	}
	if app.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)) {
		t.Fatal("ctrl-c must quit")
	}
}

func TestDraw_StatusLine(t *testing.T) {
	app, s, _ := newTestApp(t)
	app.Draw()

	line := rowText(s, 24)
	if !strings.Contains(line, "[idle]") || !strings.Contains(line, "51.5050") {
		t.Fatalf("status line=%q", line)
	}
}

func TestDraw_GraticuleWithLabels(t *testing.T) {
	app, s, _ := newTestApp(t)
	app.Draw()

	lines := 0
	for row := range 24 {
		if strings.ContainsAny(rowText(s, row), "│┼") {
			lines++
		}
	}
	if lines == 0 {
		t.Fatal("no meridians drawn")
	}
	if top := rowText(s, 0); !strings.Contains(top, "-0.") && !strings.Contains(top, "0.0") {
		t.Fatalf("top row has no longitude label: %q", top)
	}
}

func TestNiceStep(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.013, 0.02},
		{0.02, 0.02},
		{0.03, 0.05},
		{0.07, 0.1},
		{3, 5},
		{0, 1},
	}
	for _, c := range cases {
		if got := niceStep(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("niceStep(%v)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize(json.RawMessage(`{"cells":["x"]}`)); got != "received 15 bytes, 1 cells" {
		t.Fatalf("got %q", got)
	}
	if got := summarize(json.RawMessage(`[1,2]`)); got != "received 5 bytes" {
		t.Fatalf("got %q", got)
	}
}
