package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rddigitech/dashboard-api/internal/core"
)

const (
	MinWindowDays     = 1
	MaxWindowDays     = 365
	DefaultWindowDays = 30
)

// ClampWindow bounds days to [MinWindowDays, MaxWindowDays].
func ClampWindow(days int) int {
	if days < MinWindowDays {
		return MinWindowDays
	}
	if days > MaxWindowDays {
		return MaxWindowDays
	}
	return days
}

func RangeLabel(days int) string {
	return fmt.Sprintf("Last %d days", days)
}

// ParseFloat reads a backend value. Anything unparsable, NaN or infinite is 0.
func ParseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseCount reads a count-like backend value: parsed as a float, rounded to
// the nearest integer, never negative.
func ParseCount(v string) int {
	f := math.Round(ParseFloat(v))
	if f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// PrettyDuration renders seconds as "42s" or "3m 5s".
func PrettyDuration(seconds float64) string {
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return core.UnknownDuration
	}
	s := int64(math.Round(seconds))
	mins, rem := s/60, s%60
	if mins == 0 {
		return fmt.Sprintf("%ds", rem)
	}
	return fmt.Sprintf("%dm %ds", mins, rem)
}
