package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/map-area-select/internal/core/config"
	"github.com/mohammed-shakir/map-area-select/internal/core/model"
	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
)

const dataRoute = "/data/{query}"

// receives validated area queries and serves them
type DataHandler interface {
	HandleData(ctx context.Context, w http.ResponseWriter, r *http.Request, q model.AreaQuery)
}

// Mount registers the data route on r.
func Mount(r chi.Router, logger *slog.Logger, cfg config.Config, h DataHandler) {
	r.Get(dataRoute, HandleData(logger, cfg, h))
}

// validates the path query and calls the handler
func HandleData(logger *slog.Logger, cfg config.Config, h DataHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseAreaQuery(chi.URLParam(r, "query"), cfg.MaxResolution)
		if err != nil {
			logger.DebugContext(r.Context(), "rejected data query", "err", err)
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, dataRoute, http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		h.HandleData(r.Context(), sw, r, q)
		observability.ObserveHTTP(r.Method, dataRoute, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseAreaQuery parses "lat,lng,width,height,resolution".
func ParseAreaQuery(raw string, maxResolution int) (model.AreaQuery, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 5 {
		return model.AreaQuery{}, errors.New("expected 5 comma-separated values: lat,lng,width,height,resolution")
	}
	lat, err := parseFloat(parts[0])
	if err != nil {
		return model.AreaQuery{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := parseFloat(parts[1])
	if err != nil {
		return model.AreaQuery{}, fmt.Errorf("lng: %w", err)
	}
	width, err := parseFloat(parts[2])
	if err != nil {
		return model.AreaQuery{}, fmt.Errorf("width: %w", err)
	}
	height, err := parseFloat(parts[3])
	if err != nil {
		return model.AreaQuery{}, fmt.Errorf("height: %w", err)
	}
	res, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil {
		return model.AreaQuery{}, fmt.Errorf("resolution: %w", err)
	}

	if !(lat >= -90 && lat <= 90) {
		return model.AreaQuery{}, errors.New("latitude must be in [-90,90]")
	}
	if !(lng >= -180 && lng <= 180) {
		return model.AreaQuery{}, errors.New("longitude must be in [-180,180]")
	}
	if maxResolution <= 0 {
		maxResolution = 500
	}
	if res < 1 || res > maxResolution {
		return model.AreaQuery{}, fmt.Errorf("resolution must be in [1,%d]", maxResolution)
	}

	area := model.Area{Lat: lat, Lng: lng, Width: width, Height: height}
	bb := area.BBox()
	if !(bb.Y1 >= -90 && bb.Y2 <= 90) {
		return model.AreaQuery{}, fmt.Errorf("area latitude span [%g,%g] leaves [-90,90]", bb.Y1, bb.Y2)
	}
	if !(bb.X1 >= -180 && bb.X2 <= 180) {
		return model.AreaQuery{}, fmt.Errorf("area longitude span [%g,%g] leaves [-180,180]", bb.X1, bb.X2)
	}

	return model.AreaQuery{Area: area, Resolution: res}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("must be finite")
	}
	return f, nil
}
