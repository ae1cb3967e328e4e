package moderation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var durationRegex = regexp.MustCompile(`^(\d+)([smhd])$`)

var unitMillis = map[string]int64{
	"s": 1000,
	"m": 60 * 1000,
	"h": 60 * 60 * 1000,
	"d": 24 * 60 * 60 * 1000,
}

// Duration is a validated `<number><unit>` spec such as "10m" or "7d".
type Duration struct {
	Spec   string
	Millis int64
}

// ParseDuration validates spec against ^\d+[smhd]$ and converts it to
// milliseconds.
func ParseDuration(spec string) (Duration, error) {
	m := durationRegex.FindStringSubmatch(spec)
	if m == nil {
		return Duration{}, fmt.Errorf("duration %q must be a number followed by s, m, h or d", spec)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Duration{}, fmt.Errorf("duration %q is out of range", spec)
	}
	unit := unitMillis[m[2]]
	if n > math.MaxInt64/unit/int64(time.Millisecond) {
		return Duration{}, fmt.Errorf("duration %q is out of range", spec)
	}
	return Duration{Spec: spec, Millis: n * unit}, nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Millis) * time.Millisecond
}

func (d Duration) String() string { return d.Spec }
