package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

// keyPrecision rounds coordinates so requests that differ only by float noise
// share a key.
const keyPrecision = 7

// AreaKey builds the cache key for a data response. Coordinates are rounded,
// negative zero is folded to zero, and an xxhash suffix covers the full
// canonical text.
func AreaKey(a model.Area, resolution, h3Res int) string {
	canon := strings.Join([]string{
		coord(a.Lat),
		coord(a.Lng),
		coord(a.Width),
		coord(a.Height),
	}, ",")
	sum := xxhash.Sum64String(fmt.Sprintf("%s|%d|%d", canon, resolution, h3Res))
	return fmt.Sprintf("area:%s:r=%d:h3=%d:f=%016x", canon, resolution, h3Res, sum)
}

func coord(v float64) string {
	s := strconv.FormatFloat(v, 'f', keyPrecision, 64)
	if strings.Trim(s, "-0.") == "" {
		return strconv.FormatFloat(0, 'f', keyPrecision, 64)
	}
	return s
}
