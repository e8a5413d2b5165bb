// Package dataserver answers area data requests with the H3 cells and the
// sampling grid covering the requested area.
package dataserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/map-area-select/internal/areaevents"
	"github.com/mohammed-shakir/map-area-select/internal/cache/keys"
	"github.com/mohammed-shakir/map-area-select/internal/core/model"
	h3mapper "github.com/mohammed-shakir/map-area-select/internal/mapper/h3"
)

type Grid struct {
	Cols    int     `json:"cols"`
	Rows    int     `json:"rows"`
	StepLat float64 `json:"step_lat"`
	StepLng float64 `json:"step_lng"`
}

type Response struct {
	Area       model.Area  `json:"area"`
	BBox       [4]float64  `json:"bbox"`
	Resolution int         `json:"resolution"`
	Grid       Grid        `json:"grid"`
	H3Res      int         `json:"h3_res"`
	Cells      model.Cells `json:"cells"`
	Truncated  bool        `json:"truncated"`
}

// Cache is satisfied by *areacache.Cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, val []byte)
}

// Events is satisfied by *areaevents.Publisher.
type Events interface {
	Publish(ev areaevents.Event)
}

type Handler struct {
	logger *slog.Logger
	mapper *h3mapper.Mapper
	h3Res  int
	cache  Cache
	events Events
}

// New builds the handler; cache and events may be nil.
func New(logger *slog.Logger, mapper *h3mapper.Mapper, h3Res int, cache Cache, events Events) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, mapper: mapper, h3Res: h3Res, cache: cache, events: events}
}

func (h *Handler) HandleData(ctx context.Context, w http.ResponseWriter, _ *http.Request, q model.AreaQuery) {
	key := keys.AreaKey(q.Area, q.Resolution, h.h3Res)

	if h.cache != nil {
		if body, ok := h.cache.Get(ctx, key); ok {
			h.publish(q, "hit", -1, -1)
			writeJSON(w, "hit", body)
			return
		}
	}

	resp, err := h.Build(q)
	if err != nil {
		h.logger.ErrorContext(ctx, "build area response", "err", err, "area", q.Area.BBox().String())
		http.Error(w, "failed to compute area cells", http.StatusInternalServerError)
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		h.logger.ErrorContext(ctx, "encode area response", "err", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		h.cache.Put(ctx, key, body)
	}
	h.publish(q, "miss", resp.H3Res, len(resp.Cells))
	h.logger.DebugContext(ctx, "area served",
		"bbox", q.Area.BBox().String(),
		"resolution", q.Resolution,
		"h3_res", resp.H3Res,
		"cells", len(resp.Cells),
		"truncated", resp.Truncated)
	writeJSON(w, "miss", body)
}

// Build computes the response body for q.
func (h *Handler) Build(q model.AreaQuery) (Response, error) {
	bb := q.Area.BBox()
	cov, err := h.mapper.CellsForBBox(bb, h.h3Res)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Area:       q.Area,
		BBox:       [4]float64{bb.X1, bb.Y1, bb.X2, bb.Y2},
		Resolution: q.Resolution,
		Grid: Grid{
			Cols:    q.Resolution,
			Rows:    q.Resolution,
			StepLat: (bb.Y2 - bb.Y1) / float64(q.Resolution),
			StepLng: (bb.X2 - bb.X1) / float64(q.Resolution),
		},
		H3Res:     cov.Res,
		Cells:     cov.Cells,
		Truncated: cov.Truncated,
	}, nil
}

func (h *Handler) publish(q model.AreaQuery, cache string, h3Res, cells int) {
	if h.events == nil {
		return
	}
	ev := areaevents.NewEvent(q.Area, q.Resolution)
	ev.Cache = cache
	if h3Res >= 0 {
		ev.H3Res = h3Res
		ev.Cells = cells
	}
	h.events.Publish(ev)
}

func writeJSON(w http.ResponseWriter, cache string, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
