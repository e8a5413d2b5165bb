package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

type APICfg struct {
	Host         string
	Port         string
	// DATA_COORD_PRECISION, default 6 (51.510000); 2 gives 51.51
	Precision    int
	FetchTimeout time.Duration
}

type CacheCfg struct {
	Enabled   bool
	Size      int
	TTL       time.Duration
	RedisAddr string
	OpTimeout time.Duration
}

type EventsCfg struct {
	Brokers   string
	Topic     string
	QueueSize int
}

type Config struct {
	Addr          string
	LogLevel      string
	LogConsole    bool
	LogFile       string
	LogSampleN    int
	API           APICfg
	Viewport      model.Viewport
	CellPxW       int
	CellPxH       int
	H3Res         int
	H3MaxCells    int
	MaxResolution int
	Cache         CacheCfg
	Events        EventsCfg
}

func FromEnv() Config {
	def := model.DefaultViewport()

	h3Res := getint("H3_RES", 8)
	if h3Res < 0 {
		h3Res = 0
	}
	if h3Res > 15 {
		h3Res = 15
	}

	precision := getint("DATA_COORD_PRECISION", 6)
	if precision < 0 {
		precision = 6
	}

	cellW := getint("CELL_PX_W", 8)
	if cellW <= 0 {
		cellW = 8
	}
	cellH := getint("CELL_PX_H", 16)
	if cellH <= 0 {
		cellH = 16
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogFile:    getenv("LOG_FILE", "mapselect.log"),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		API: APICfg{
			Host:         getenv("API_HOST", "localhost"),
			Port:         getenv("API_PORT", "8090"),
			Precision:    precision,
			FetchTimeout: getduration("FETCH_TIMEOUT", 0),
		},
		Viewport: model.Viewport{
			Lat:  getfloat("MAP_CENTER_LAT", def.Lat),
			Lng:  getfloat("MAP_CENTER_LNG", def.Lng),
			Zoom: getint("MAP_ZOOM", def.Zoom),
		},
		CellPxW:       cellW,
		CellPxH:       cellH,
		H3Res:         h3Res,
		H3MaxCells:    getint("H3_MAX_CELLS", 4096),
		MaxResolution: getint("MAX_RESOLUTION", 500),
		Cache: CacheCfg{
			Enabled:   getbool("CACHE_ENABLED", false),
			Size:      getint("CACHE_SIZE", 1024),
			TTL:       getduration("CACHE_TTL", 60*time.Second),
			RedisAddr: getenv("REDIS_ADDR", ""),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Events: EventsCfg{
			Brokers:   getenv("KAFKA_BROKERS", ""),
			Topic:     getenv("KAFKA_TOPIC", "area-requests"),
			QueueSize: getint("EVENTS_QUEUE", 1024),
		},
	}
}

// splits a comma separated broker list, dropping blanks
func (e EventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
