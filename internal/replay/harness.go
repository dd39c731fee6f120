package replay

import (
	"fmt"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/telemetry"
)

// #region types
// Tick is one recorded control step.
type Tick struct {
	TickID   string
	Proposed safety.Action
	Context  safety.ContextState
}

// TickResult is the outcome of replaying one tick.
type TickResult struct {
	TickID string
	Result safety.ClipResult
}

// Mismatch describes a replayed tick that disagrees with its expectation.
type Mismatch struct {
	TickID string
	Field  string // "is_safe" | "kinds" | "clamped" | "missing"
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s want %s got %s", m.TickID, m.Field, m.Want, m.Got)
}

// #endregion types

// #region replay
// Replay clips every tick against bounds, in order. Ticks are independent:
// the envelope carries no state from one call to the next.
func Replay(bounds []safety.Bounds, ticks []Tick) []TickResult {
	results := make([]TickResult, 0, len(ticks))
	for _, t := range ticks {
		results = append(results, TickResult{
			TickID: t.TickID,
			Result: safety.Clip(t.Proposed, t.Context, bounds),
		})
	}
	return results
}

// Summarize aggregates replay results.
func Summarize(results []TickResult) telemetry.Summary {
	rs := make([]safety.ClipResult, len(results))
	for i, r := range results {
		rs[i] = r.Result
	}
	return telemetry.Summarize(rs)
}

// #endregion replay

// #region verify
// Verify compares results against expectations keyed by tick ID. Nil fields
// in an expectation are not checked.
func Verify(results []TickResult, expected []Expectation) []Mismatch {
	byID := make(map[string]safety.ClipResult, len(results))
	for _, r := range results {
		byID[r.TickID] = r.Result
	}

	var mismatches []Mismatch
	for _, exp := range expected {
		res, ok := byID[exp.TickID]
		if !ok {
			mismatches = append(mismatches, Mismatch{TickID: exp.TickID, Field: "missing", Want: "result", Got: "none"})
			continue
		}
		if exp.IsSafe != nil && *exp.IsSafe != res.IsSafe {
			mismatches = append(mismatches, Mismatch{
				TickID: exp.TickID, Field: "is_safe",
				Want: fmt.Sprint(*exp.IsSafe), Got: fmt.Sprint(res.IsSafe),
			})
		}
		if exp.Kinds != nil {
			got := kindsOf(res)
			if !equalKinds(exp.Kinds, got) {
				mismatches = append(mismatches, Mismatch{
					TickID: exp.TickID, Field: "kinds",
					Want: fmt.Sprint(exp.Kinds), Got: fmt.Sprint(got),
				})
			}
		}
		if exp.Clamped != nil && !equalActions(exp.Clamped, res.ClampedAction) {
			mismatches = append(mismatches, Mismatch{
				TickID: exp.TickID, Field: "clamped",
				Want: safety.FormatAction(exp.Clamped), Got: safety.FormatAction(res.ClampedAction),
			})
		}
	}
	return mismatches
}

func kindsOf(res safety.ClipResult) []safety.ViolationKind {
	out := make([]safety.ViolationKind, len(res.Stats))
	for i, s := range res.Stats {
		out[i] = s.Violation
	}
	return out
}

func equalKinds(a, b []safety.ViolationKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalActions(a, b safety.Action) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// #endregion verify

// #region log-diff
// Divergence is a logged clip whose outcome changes under other bounds.
type Divergence struct {
	RecordID string
	Before   safety.ClipResult
	After    safety.ClipResult
}

// DiffLog re-clips logged proposals against bounds and returns every record
// whose safety flag, kinds, or clamped action would differ. Used to preview
// a profile change against recorded traffic.
func DiffLog(entries []logging.ClipLogEntry, bounds []safety.Bounds) []Divergence {
	var out []Divergence
	for _, e := range entries {
		after := safety.Clip(e.Proposed, e.Context, bounds)
		before := e.Result
		if before.IsSafe != after.IsSafe ||
			!equalKinds(kindsOf(before), kindsOf(after)) ||
			!equalActions(before.ClampedAction, after.ClampedAction) {
			out = append(out, Divergence{RecordID: e.RecordID, Before: before, After: after})
		}
	}
	return out
}

// #endregion log-diff
