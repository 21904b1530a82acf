// Package stats holds lightweight, togglable counters used to observe the
// VM core's behavior (such as diag's fault counts) without forcing every
// caller to pay for them. Grounded on
// biscuit's stats.Counter_t/Cycles_t/Stats2String (biscuit/src/stats/stats.go),
// with the build-time `const Stats = false` toggle replaced by a runtime
// atomic.Bool: this tree has no link-time feature-flag mechanism, and a
// hosted simulation benefits more from being able to flip counting on for a
// single test than from a compiled-out no-op.
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

// Enable turns counting and timing on or off. Disabled is the default, to
// match the zero-cost-by-default behavior of the build-time toggle this
// replaces.
func Enable(on bool) {
	enabled.Store(on)
}

// Enabled reports the current toggle state.
func Enabled() bool {
	return enabled.Load()
}

// cycles stands in for rdtsc in this hosted simulation: there is no real
// cycle counter to read, so elapsed wall-clock nanoseconds serve the same
// relative-cost-comparison purpose the counters are used for.
func cycles() uint64 {
	return uint64(time.Now().UnixNano())
}

// Counter_t is a statistical counter, incremented only while Enabled.
type Counter_t int64

// Cycles_t accumulates elapsed cycles, added only while Enabled.
type Cycles_t int64

// Inc increments the counter.
func (c *Counter_t) Inc() {
	if enabled.Load() {
		atomic.AddInt64((*int64)(c), 1)
	}
}

// Start returns a cycle-count snapshot suitable for a later Add call,
// win the caller wants to time a span of work.
func Start() uint64 {
	return cycles()
}

// Add records the cycles elapsed since start.
func (c *Cycles_t) Add(start uint64) {
	if enabled.Load() {
		atomic.AddInt64((*int64)(c), int64(cycles()-start))
	}
}

// Stats2String renders every Counter_t/Cycles_t field of st as a printable
// string, or "" when counting is disabled, matching the original's
// zero-overhead-when-off contract.
func Stats2String(st interface{}) string {
	if !enabled.Load() {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
