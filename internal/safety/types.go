package safety

import (
	"fmt"
	"math"
)

// #region action
// Action is a proposed control command, one scalar per controlled dimension.
// Positions align with the bounds slice passed to Clip.
type Action []float64

// ContextState is the observable system state at the time of the call
// (joint positions, velocities, ...). Clip accepts it but does not read it;
// it exists for bounds providers that derive limits from state.
type ContextState []float64

// #endregion action

// #region bounds
// Bounds is the safe operating envelope for one dimension.
// Valid bounds satisfy LowerHard <= LowerSoft <= UpperSoft <= UpperHard.
type Bounds struct {
	LowerHard float64 `json:"lower_hard" yaml:"lower_hard"`
	UpperHard float64 `json:"upper_hard" yaml:"upper_hard"`
	LowerSoft float64 `json:"lower_soft" yaml:"lower_soft"`
	UpperSoft float64 `json:"upper_soft" yaml:"upper_soft"`
}

// Unbounded returns bounds that never clamp and never flag.
func Unbounded() Bounds {
	return Bounds{
		LowerHard: math.Inf(-1),
		UpperHard: math.Inf(1),
		LowerSoft: math.Inf(-1),
		UpperSoft: math.Inf(1),
	}
}

// #endregion bounds

// #region violation-kind
// ViolationKind tags the outcome for one dimension.
type ViolationKind uint8

const (
	// ViolationNone: value within the soft band, unchanged.
	ViolationNone ViolationKind = iota
	// ViolationSoftLimit: outside the soft band but within hard bounds. Advisory, not modified.
	ViolationSoftLimit
	// ViolationHardLimit: outside hard bounds, clamped to the nearest hard bound.
	ViolationHardLimit
	// ViolationInvariantBreach: non-finite value or dimension mismatch, neutralized to zero.
	ViolationInvariantBreach
)

var violationNames = [...]string{
	ViolationNone:            "none",
	ViolationSoftLimit:       "soft_limit",
	ViolationHardLimit:       "hard_limit",
	ViolationInvariantBreach: "invariant_breach",
}

func (k ViolationKind) String() string {
	if int(k) < len(violationNames) {
		return violationNames[k]
	}
	return fmt.Sprintf("violation(%d)", uint8(k))
}

// MarshalText encodes the kind by name so JSON and YAML telemetry stay readable.
func (k ViolationKind) MarshalText() ([]byte, error) {
	if int(k) >= len(violationNames) {
		return nil, fmt.Errorf("unknown violation kind %d", uint8(k))
	}
	return []byte(violationNames[k]), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *ViolationKind) UnmarshalText(text []byte) error {
	kind, err := ParseViolationKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseViolationKind maps a kind name back to its value.
func ParseViolationKind(s string) (ViolationKind, error) {
	for i, name := range violationNames {
		if name == s {
			return ViolationKind(i), nil
		}
	}
	return ViolationNone, fmt.Errorf("unknown violation kind %q", s)
}

// AllViolationKinds lists every kind in declaration order.
func AllViolationKinds() []ViolationKind {
	return []ViolationKind{
		ViolationNone,
		ViolationSoftLimit,
		ViolationHardLimit,
		ViolationInvariantBreach,
	}
}

// #endregion violation-kind

// #region clip-stats
// ClipStats records what happened to a single dimension.
type ClipStats struct {
	Dimension     int           `json:"dimension"` // -1 for the aggregate dimension-mismatch record
	Violation     ViolationKind `json:"violation"`
	OriginalValue float64       `json:"original_value"`
	ClippedValue  float64       `json:"clipped_value"`
	WasModified   bool          `json:"was_modified"`
	Message       string        `json:"message,omitempty"`
}

// #endregion clip-stats

// #region clip-result
// ClipResult is the output of Clip. Callers must check IsSafe before
// applying ClampedAction.
type ClipResult struct {
	ClampedAction Action      `json:"clamped_action"`
	Stats         []ClipStats `json:"stats"`
	IsSafe        bool        `json:"is_safe"` // false iff any stat is ViolationInvariantBreach
}

// Count returns how many stats carry the given kind.
func (r ClipResult) Count(kind ViolationKind) int {
	n := 0
	for _, s := range r.Stats {
		if s.Violation == kind {
			n++
		}
	}
	return n
}

// Modified reports whether any dimension was altered.
func (r ClipResult) Modified() bool {
	for _, s := range r.Stats {
		if s.WasModified {
			return true
		}
	}
	return false
}

// #endregion clip-result
