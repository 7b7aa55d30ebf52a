package duration_test

import (
	"math"
	"testing"
	"time"

	"github.com/LeonPucin/dash-core/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNegative(t *testing.T) {
	_, err := duration.New(-time.Second)
	require.ErrorIs(t, err, duration.ErrNegative)

	d, err := duration.New(0)
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestConversions(t *testing.T) {
	d, err := duration.FromDays(1.5)
	require.NoError(t, err)

	assert.Equal(t, 1.5, d.Days())
	assert.Equal(t, 36.0, d.Hours())
	assert.Equal(t, 36.0*60, d.Minutes())
	assert.Equal(t, 36.0*3600, d.Seconds())
	assert.Equal(t, int64(36*3600*1000), d.Milliseconds())

	ms, err := duration.FromMilliseconds(1500)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, ms.Std())

	_, err = duration.FromSeconds(-1)
	require.ErrorIs(t, err, duration.ErrNegative)

	_, err = duration.FromDays(1e12)
	require.ErrorIs(t, err, duration.ErrOverflow)
}

func TestAddSub(t *testing.T) {
	a := duration.Must(2 * time.Second)
	b := duration.Must(500 * time.Millisecond)

	assert.Equal(t, 2500*time.Millisecond, a.Add(b).Std())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, diff.Std())

	_, err = b.Sub(a)
	require.ErrorIs(t, err, duration.ErrNegative)

	huge := duration.Must(time.Duration(1<<62 + 1<<61))
	assert.Equal(t, time.Duration(1<<63-1), huge.Add(huge).Std(), "addition saturates")
}

func TestEqualCompare(t *testing.T) {
	a := duration.Must(time.Second)
	b, _ := duration.FromMilliseconds(1000)
	c := duration.Must(time.Minute)

	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
	assert.Equal(t, -1, a.Compare(c))
	assert.Equal(t, 1, c.Compare(a))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"1h30m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{"1d12h", 36 * time.Hour},
		{" 5m ", 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := duration.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Std())
		})
	}

	for _, bad := range []string{"", "-1s", "xd", "-1d", "soon"} {
		_, err := duration.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestFromAny(t *testing.T) {
	d, err := duration.FromAny("1d")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d.Std())

	d, err = duration.FromAny(3 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d.Std())

	d, err = duration.FromAny(int64(1000))
	require.NoError(t, err)
	assert.Equal(t, time.Microsecond, d.Std())

	_, err = duration.FromAny(struct{}{})
	assert.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	var d duration.Duration
	require.NoError(t, d.UnmarshalText([]byte("1d2h")))
	assert.Equal(t, 26*time.Hour, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "26h0m0s", string(text))
}

func TestParse_DayOverflow(t *testing.T) {
	d, err := duration.Parse("106751d23h47m16.854775807s")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(math.MaxInt64), d.Std())

	_, err = duration.Parse("106751d23h47m16.854775808s")
	require.ErrorIs(t, err, duration.ErrOverflow)

	_, err = duration.Parse("106752d")
	require.ErrorIs(t, err, duration.ErrOverflow)

	_, err = duration.FromSeconds(1e10)
	require.ErrorIs(t, err, duration.ErrOverflow)
}
