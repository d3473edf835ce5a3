// Package mouse translates client pointer events into driver calls.
package mouse

import (
	"math"

	"vtouchpad/internal/input"
)

// DefaultScrollThreshold is the scroll distance of one wheel click.
const DefaultScrollThreshold = 10

// MaxWheelClicks bounds the clicks emitted per axis by one Scroll call.
// Distance beyond it is dropped, keeping the remainder below the threshold.
const MaxWheelClicks = 100

// Translator is the pointer state of one session. It accumulates scroll
// distance until a threshold is crossed and emits whole wheel clicks. It is
// not safe for concurrent use.
type Translator struct {
	driver    input.Driver
	threshold float64
	lo, hi    int

	ax, ay float64
}

// New returns a translator sending events to driver. A non-positive
// threshold selects DefaultScrollThreshold.
func New(driver input.Driver, threshold float64) *Translator {
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		threshold = DefaultScrollThreshold
	}
	t := &Translator{driver: driver, threshold: threshold}
	if r, ok := driver.(input.DeltaRanger); ok {
		t.lo, t.hi = r.DeltaRange()
	} else {
		t.lo, t.hi = input.DefaultDeltaRange()
	}
	return t
}

// Threshold returns the scroll distance of one wheel click.
func (t *Translator) Threshold() float64 {
	return t.threshold
}

// Accumulated returns the scroll distance not yet emitted.
func (t *Translator) Accumulated() (ax, ay float64) {
	return t.ax, t.ay
}

// Reset drops any accumulated scroll distance.
func (t *Translator) Reset() {
	t.ax, t.ay = 0, 0
}

// Down presses a button. Button activity ends any scroll gesture.
func (t *Translator) Down(button int) error {
	t.Reset()
	return t.driver.MouseButtonDown(button)
}

// Up releases a button.
func (t *Translator) Up(button int) error {
	t.Reset()
	return t.driver.MouseButtonUp(button)
}

// Move moves the pointer, clamping the deltas to what the driver can
// represent.
func (t *Translator) Move(dx, dy float64) error {
	t.Reset()
	return t.driver.MouseMove(t.clamp(dx), t.clamp(dy))
}

func (t *Translator) clamp(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= float64(t.lo):
		return t.lo
	case v >= float64(t.hi):
		return t.hi
	}
	return int(v)
}

// Scroll adds a scroll distance and emits a wheel click for every whole
// threshold crossed, vertical first. The remainder is kept for the next
// call.
func (t *Translator) Scroll(dx, dy float64) error {
	t.ax += dx
	t.ay += dy

	if err := t.emit(&t.ay, input.ButtonWheelDown, input.ButtonWheelUp); err != nil {
		return err
	}
	return t.emit(&t.ax, input.ButtonWheelRight, input.ButtonWheelLeft)
}

func (t *Translator) emit(acc *float64, positive, negative int) error {
	clicks := math.Trunc(*acc / t.threshold)
	if clicks == 0 {
		return nil
	}

	button, sign := positive, 1.0
	if clicks < 0 {
		button, sign = negative, -1.0
	}
	if math.Abs(clicks) > MaxWheelClicks {
		clicks = sign * MaxWheelClicks
		*acc = math.Mod(*acc, t.threshold) + clicks*t.threshold
	}

	n := int(math.Abs(clicks))
	for i := 0; i < n; i++ {
		if err := t.driver.MouseWheel(button); err != nil {
			*acc -= sign * float64(i) * t.threshold
			return err
		}
	}
	*acc -= clicks * t.threshold
	return nil
}
