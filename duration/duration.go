// Package duration provides an immutable, non-negative span of elapsed time.
//
// Duration wraps time.Duration and refuses negative values at construction,
// so arithmetic that would go below zero surfaces as an error instead of a
// silently negative delay.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const Day = 24 * time.Hour

var (
	// ErrNegative is returned when a Duration would hold a negative value.
	ErrNegative = errors.New("duration: negative value")

	// ErrOverflow is returned when a conversion does not fit in a time.Duration.
	ErrOverflow = errors.New("duration: value out of range")
)

// Duration is an immutable non-negative quantity of elapsed time.
// The zero value is a valid zero-length duration.
type Duration struct {
	d time.Duration
}

// Zero is the zero-length duration.
var Zero = Duration{}

// New wraps d, rejecting negative values.
func New(d time.Duration) (Duration, error) {
	if d < 0 {
		return Zero, fmt.Errorf("%w: %s", ErrNegative, d)
	}
	return Duration{d: d}, nil
}

// Must is like New but panics on a negative value. Intended for constants.
func Must(d time.Duration) Duration {
	v, err := New(d)
	if err != nil {
		panic(err)
	}
	return v
}

// FromMilliseconds builds a Duration from a millisecond count.
func FromMilliseconds(ms int64) (Duration, error) {
	return fromUnits(float64(ms), time.Millisecond)
}

// FromSeconds builds a Duration from a (possibly fractional) second count.
func FromSeconds(s float64) (Duration, error) {
	return fromUnits(s, time.Second)
}

// FromMinutes builds a Duration from a (possibly fractional) minute count.
func FromMinutes(m float64) (Duration, error) {
	return fromUnits(m, time.Minute)
}

// FromHours builds a Duration from a (possibly fractional) hour count.
func FromHours(h float64) (Duration, error) {
	return fromUnits(h, time.Hour)
}

// FromDays builds a Duration from a (possibly fractional) day count.
func FromDays(d float64) (Duration, error) {
	return fromUnits(d, Day)
}

func fromUnits(n float64, unit time.Duration) (Duration, error) {
	if math.IsNaN(n) {
		return Zero, fmt.Errorf("duration: NaN %s count", unit)
	}
	v := n * float64(unit)
	// float64(math.MaxInt64) rounds up to 2^63, which no Duration can hold.
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return Zero, ErrOverflow
	}
	return New(time.Duration(v))
}

// Parse reads a duration in Go syntax ("1h30m", "250ms") extended with a
// leading day component ("2d", "1d12h").
func Parse(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, errors.New("duration: empty string")
	}

	var days time.Duration
	if i := strings.IndexByte(s, 'd'); i > 0 {
		n, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return Zero, fmt.Errorf("duration: invalid day component in %q: %w", s, err)
		}
		dd, err := FromDays(n)
		if err != nil {
			return Zero, err
		}
		days = dd.d
		s = s[i+1:]
		if s == "" {
			return Duration{d: days}, nil
		}
	}

	rest, err := time.ParseDuration(s)
	if err != nil {
		return Zero, fmt.Errorf("duration: %w", err)
	}
	if rest > 0 && days > math.MaxInt64-rest {
		return Zero, ErrOverflow
	}
	return New(days + rest)
}

// FromAny converts loosely typed configuration values. Strings go through
// Parse; numbers and time.Duration values are handled by cast, where bare
// integers count nanoseconds.
func FromAny(v any) (Duration, error) {
	switch t := v.(type) {
	case Duration:
		return t, nil
	case *Duration:
		if t == nil {
			return Zero, nil
		}
		return *t, nil
	case string:
		return Parse(t)
	}

	d, err := cast.ToDurationE(v)
	if err != nil {
		return Zero, fmt.Errorf("duration: %w", err)
	}
	return New(d)
}

// Add returns d+o, saturating at the largest representable duration.
func (d Duration) Add(o Duration) Duration {
	if d.d > math.MaxInt64-o.d {
		return Duration{d: math.MaxInt64}
	}
	return Duration{d: d.d + o.d}
}

// Sub returns d-o, or ErrNegative when o is longer than d.
func (d Duration) Sub(o Duration) (Duration, error) {
	if o.d > d.d {
		return Zero, fmt.Errorf("%w: %s - %s", ErrNegative, d.d, o.d)
	}
	return Duration{d: d.d - o.d}, nil
}

func (d Duration) Equal(o Duration) bool {
	return d.d == o.d
}

// Compare returns -1, 0 or +1.
func (d Duration) Compare(o Duration) int {
	switch {
	case d.d < o.d:
		return -1
	case d.d > o.d:
		return 1
	default:
		return 0
	}
}

func (d Duration) IsZero() bool {
	return d.d == 0
}

func (d Duration) Milliseconds() int64 {
	return d.d.Milliseconds()
}

func (d Duration) Seconds() float64 {
	return d.d.Seconds()
}

func (d Duration) Minutes() float64 {
	return d.d.Minutes()
}

func (d Duration) Hours() float64 {
	return d.d.Hours()
}

func (d Duration) Days() float64 {
	return float64(d.d) / float64(Day)
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return d.d
}

func (d Duration) String() string {
	return d.d.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
