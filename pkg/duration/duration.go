// Package duration renders uptimes and execution times for people.
package duration

import (
	"fmt"
	"strings"
	"time"
)

// Unit is the unit of a raw duration value.
type Unit string

const (
	Milliseconds Unit = "ms"
	Nanoseconds  Unit = "ns"
)

// DefaultValue is shown when no uptime can be computed.
const DefaultValue = "n/a"

type part struct {
	n    int64
	name string
}

func split(d time.Duration) (days, hours, minutes, seconds, millis int64) {
	days = int64(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours = int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes = int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds = int64(d / time.Second)
	d -= time.Duration(seconds) * time.Second
	millis = int64(d / time.Millisecond)

	return
}

// DifferenceString describes the time elapsed between since and now as
// "N days N hours N minutes ", leaving out zero parts. A zero since, or an
// elapsed time under a minute, yields defaultValue.
func DifferenceString(since, now time.Time, defaultValue string) string {
	if since.IsZero() {
		return defaultValue
	}

	days, hours, minutes, _, _ := split(now.Sub(since))

	var b strings.Builder
	for _, p := range []part{{days, "days"}, {hours, "hours"}, {minutes, "minutes"}} {
		if p.n > 0 {
			fmt.Fprintf(&b, "%d %s ", p.n, p.name)
		}
	}

	if b.Len() == 0 {
		return defaultValue
	}

	return b.String()
}

// Since is DifferenceString against the current time.
func Since(since time.Time) string {
	return DifferenceString(since, time.Now(), DefaultValue)
}

// String describes a raw duration as comma separated days, hours, minutes and
// seconds. Values under a second are shown in milliseconds, with two decimals
// when under a millisecond. Zero renders as "NaN".
func String(value float64, unit Unit) string {
	if value == 0 {
		return "NaN"
	}

	ms := value
	if unit == Nanoseconds {
		ms = value / 1e6
	}

	days, hours, minutes, seconds, millis := split(time.Duration(ms * float64(time.Millisecond)))

	parts := make([]string, 0, 4)
	for _, p := range []part{{days, "days"}, {hours, "hours"}, {minutes, "minutes"}, {seconds, "seconds"}} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.name))
		}
	}

	if len(parts) == 0 {
		if millis > 0 {
			return fmt.Sprintf("%d ms", millis)
		}

		return fmt.Sprintf("%.2f ms", ms)
	}

	return strings.Join(parts, ", ")
}
