// Package datafetch requests data for a committed map area from the data service.
package datafetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
)

const maxBodyBytes = 32 << 20

var ErrInvalidJSON = errors.New("response body is not valid JSON")

type Config struct {
	Host string
	Port string
	// digits after the decimal point for lat, lng, width and height;
	// 2 yields paths like /data/51.51,-0.10,0.02,0.02,50
	Precision int
}

type Client struct {
	logger    *slog.Logger
	client    *http.Client
	base      *url.URL
	precision int
	startNow  func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("data api host is required")
	}
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		return nil, errors.New("data api port is required")
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid data api port %q: %w", port, err)
	}
	u, err := url.Parse("http://" + net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("parse data api url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prec := cfg.Precision
	if prec < 0 {
		prec = 6
	}
	return &Client{
		logger:    logger,
		client:    client,
		base:      u,
		precision: prec,
		startNow:  time.Now,
	}, nil
}

// Path returns /data/{lat},{lng},{width},{height},{resolution}.
func (c *Client) Path(a model.Area) string {
	parts := []string{
		c.format(a.Lat),
		c.format(a.Lng),
		c.format(a.Width),
		c.format(a.Height),
		strconv.Itoa(model.Resolution),
	}
	return "/data/" + strings.Join(parts, ",")
}

func (c *Client) URL(a model.Area) string {
	u := *c.base
	u.Path = c.Path(a)
	return u.String()
}

func (c *Client) format(v float64) string {
	return strconv.FormatFloat(v, 'f', c.precision, 64)
}

// Fetch issues the GET for the area and returns the body once it parses as JSON.
func (c *Client) Fetch(ctx context.Context, a model.Area) (json.RawMessage, error) {
	target := c.URL(a)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "fetch area data", "url", target)

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	observability.ObserveFetchLatency(time.Since(start).Seconds())

	b = bytes.TrimSpace(b)
	if !json.Valid(b) {
		return nil, fmt.Errorf("parse response: %w", ErrInvalidJSON)
	}
	c.logger.DebugContext(ctx, "fetch done", "status", resp.StatusCode, "bytes", len(b))
	return json.RawMessage(b), nil
}
