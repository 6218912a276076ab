package history

import (
	"math"
	"time"
)

const (
	CountUpDuration = 500 * time.Millisecond
	CountUpDecimals = 0
)

// CountUp animates a displayed number towards a target. Retargeting starts
// from whatever value is on screen, so quick updates never snap back to zero.
type CountUp struct {
	Duration time.Duration
	Decimals int

	from, to float64
	start    time.Time
}

// NewCountUp starts at zero with the default duration and precision.
func NewCountUp() *CountUp {
	return &CountUp{Duration: CountUpDuration, Decimals: CountUpDecimals}
}

// Set retargets the animation at now.
func (c *CountUp) Set(end float64, now time.Time) {
	if end == c.to && !c.start.IsZero() {
		return
	}
	c.from = c.raw(now)
	c.to = end
	c.start = now
}

// Target is the value the animation ends on.
func (c *CountUp) Target() float64 { return c.to }

// Value is the displayed value at now, rounded to Decimals.
func (c *CountUp) Value(now time.Time) float64 {
	return roundTo(c.raw(now), c.Decimals)
}

// Done reports whether the animation has reached its target.
func (c *CountUp) Done(now time.Time) bool {
	return c.start.IsZero() || now.Sub(c.start) >= c.Duration
}

// Text formats the displayed value at now.
func (c *CountUp) Text(now time.Time, f Formatter) string {
	return f.Format(c.Value(now))
}

func (c *CountUp) raw(now time.Time) float64 {
	if c.Done(now) {
		return c.to
	}
	elapsed := now.Sub(c.start)
	if elapsed < 0 {
		return c.from
	}
	return c.from + (c.to-c.from)*easeOutExpo(float64(elapsed)/float64(c.Duration))
}

// easeOutExpo maps progress t in [0,1] onto a decelerating curve that
// lands exactly on 1.
func easeOutExpo(t float64) float64 {
	if t >= 1 {
		return 1
	}
	return (1 - math.Pow(2, -10*t)) * 1024 / 1023
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
