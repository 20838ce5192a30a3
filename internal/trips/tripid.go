package trips

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TripIDPrefix starts every generated trip id.
const TripIDPrefix = "TRIP"

// IDGenerator produces trip ids of the form PREFIX-<millis> or
// PREFIX-<vehicle>-<millis>. The millisecond token never repeats within a
// process; the unique tripId index covers the rest.
type IDGenerator struct {
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix, now: time.Now}
}

// Next returns a new trip id. vehicle is embedded when non-empty.
func (g *IDGenerator) Next(vehicle string) string {
	g.mu.Lock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	vehicle = strings.Join(strings.Fields(vehicle), "")
	if vehicle == "" {
		return fmt.Sprintf("%s-%d", g.prefix, ms)
	}
	return fmt.Sprintf("%s-%s-%d", g.prefix, vehicle, ms)
}

// VehicleToken renders a vehid for embedding in a trip id. Numbers print as
// plain integers; non-integral or unsupported values yield "".
func VehicleToken(vehid interface{}) string {
	switch v := vehid.(type) {
	case string:
		return v
	case float64:
		return integralFloat(v)
	case float32:
		return integralFloat(float64(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

func integralFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
