package safety

import (
	"errors"
	"fmt"
	"math"
)

// #region errors
var (
	// ErrBoundsOrder: the limits are not ordered lower_hard <= lower_soft <= upper_soft <= upper_hard.
	ErrBoundsOrder = errors.New("bounds out of order")
	// ErrBoundsNaN: at least one limit is NaN.
	ErrBoundsNaN = errors.New("bounds contain NaN")
)

// BoundsError reports which dimension failed validation and why.
type BoundsError struct {
	Dimension int // -1 when the bounds were checked on their own
	Bounds    Bounds
	Err       error
}

func (e *BoundsError) Error() string {
	b := e.Bounds
	limits := fmt.Sprintf("hard [%s, %s] soft [%s, %s]",
		FormatValue(b.LowerHard), FormatValue(b.UpperHard),
		FormatValue(b.LowerSoft), FormatValue(b.UpperSoft))
	if e.Dimension < 0 {
		return fmt.Sprintf("%v: %s", e.Err, limits)
	}
	return fmt.Sprintf("dimension %d: %v: %s", e.Dimension, e.Err, limits)
}

func (e *BoundsError) Unwrap() error { return e.Err }

// #endregion errors

// #region constructor
// NewBounds builds validated bounds. The argument order (hard pair, then soft
// pair) matches how envelopes are usually written down: (-10, 10, -5, 5).
func NewBounds(lowerHard, upperHard, lowerSoft, upperSoft float64) (Bounds, error) {
	b := Bounds{
		LowerHard: lowerHard,
		UpperHard: upperHard,
		LowerSoft: lowerSoft,
		UpperSoft: upperSoft,
	}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// HardOnly builds bounds whose soft band equals the hard band, so the
// dimension is clamped but never flagged as a soft violation.
func HardOnly(lower, upper float64) (Bounds, error) {
	return NewBounds(lower, upper, lower, upper)
}

// MustBounds is NewBounds for literals known to be valid. It panics otherwise.
func MustBounds(lowerHard, upperHard, lowerSoft, upperSoft float64) Bounds {
	b, err := NewBounds(lowerHard, upperHard, lowerSoft, upperSoft)
	if err != nil {
		panic(err)
	}
	return b
}

// #endregion constructor

// #region validate
// Validate checks the ordering invariant. Infinite limits are allowed.
func (b Bounds) Validate() error {
	if math.IsNaN(b.LowerHard) || math.IsNaN(b.UpperHard) || math.IsNaN(b.LowerSoft) || math.IsNaN(b.UpperSoft) {
		return &BoundsError{Dimension: -1, Bounds: b, Err: ErrBoundsNaN}
	}
	if !(b.LowerHard <= b.LowerSoft && b.LowerSoft <= b.UpperSoft && b.UpperSoft <= b.UpperHard) {
		return &BoundsError{Dimension: -1, Bounds: b, Err: ErrBoundsOrder}
	}
	return nil
}

// ValidateAll validates every dimension and returns the first failure,
// annotated with its index.
func ValidateAll(bounds []Bounds) error {
	for i, b := range bounds {
		if err := b.Validate(); err != nil {
			var be *BoundsError
			if errors.As(err, &be) {
				be.Dimension = i
				return be
			}
			return fmt.Errorf("dimension %d: %w", i, err)
		}
	}
	return nil
}

// ContainsZero reports whether 0 lies inside the hard envelope. Invariant
// breaches neutralize to 0, so an envelope without it cannot hold the
// fail-safe value.
func (b Bounds) ContainsZero() bool {
	return b.LowerHard <= 0 && 0 <= b.UpperHard
}

// #endregion validate
