package safety

import "math"

// Diagnostic messages attached to ClipStats.
const (
	MsgDimensionMismatch = "dimension mismatch between action and bounds"
	MsgNonFinite         = "non-finite value"
	MsgUpperHard         = "exceeded upper hard limit"
	MsgLowerHard         = "exceeded lower hard limit"
	MsgUpperSoft         = "exceeded upper soft limit"
	MsgLowerSoft         = "exceeded lower soft limit"
)

// #region clip
// Clip clamps proposed into the hard envelope described by bounds.
//
// It never fails: malformed input (length mismatch, NaN, ±Inf) is reported
// through IsSafe and the per-dimension stats, and the offending values are
// neutralized to zero. For every finite proposed[i] the clamped value lies in
// [bounds[i].LowerHard, bounds[i].UpperHard]. Soft limits are advisory only.
//
// context is reserved for bounds providers and is not read. Inputs are never
// mutated; the result owns fresh slices.
func Clip(proposed Action, context ContextState, bounds []Bounds) ClipResult {
	_ = context

	if len(proposed) != len(bounds) {
		return ClipResult{
			ClampedAction: make(Action, len(bounds)),
			Stats: []ClipStats{{
				Dimension:   -1,
				Violation:   ViolationInvariantBreach,
				WasModified: true,
				Message:     MsgDimensionMismatch,
			}},
			IsSafe: false,
		}
	}

	result := ClipResult{
		ClampedAction: make(Action, len(proposed)),
		Stats:         make([]ClipStats, len(proposed)),
		IsSafe:        true,
	}
	for i, v := range proposed {
		stat := clipDimension(i, v, bounds[i])
		if stat.Violation == ViolationInvariantBreach {
			result.IsSafe = false
		}
		result.ClampedAction[i] = stat.ClippedValue
		result.Stats[i] = stat
	}
	return result
}

// #endregion clip

// #region clip-dimension
// clipDimension evaluates one dimension. Hard checks run before soft checks
// so a value outside both is always clamped.
func clipDimension(i int, v float64, b Bounds) ClipStats {
	stat := ClipStats{
		Dimension:     i,
		Violation:     ViolationNone,
		OriginalValue: v,
		ClippedValue:  v,
	}

	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		stat.Violation = ViolationInvariantBreach
		stat.ClippedValue = 0
		stat.WasModified = true
		stat.Message = MsgNonFinite
	case v > b.UpperHard:
		stat.Violation = ViolationHardLimit
		stat.ClippedValue = b.UpperHard
		stat.WasModified = true
		stat.Message = MsgUpperHard
	case v < b.LowerHard:
		stat.Violation = ViolationHardLimit
		stat.ClippedValue = b.LowerHard
		stat.WasModified = true
		stat.Message = MsgLowerHard
	case v > b.UpperSoft:
		stat.Violation = ViolationSoftLimit
		stat.Message = MsgUpperSoft
	case v < b.LowerSoft:
		stat.Violation = ViolationSoftLimit
		stat.Message = MsgLowerSoft
	}
	return stat
}

// #endregion clip-dimension
