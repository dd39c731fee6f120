package guard

import (
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/metrics"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/telemetry"
)

// #region types
// ActiveProfile is the profile currently enforced by a Guard.
type ActiveProfile struct {
	Profile   *config.Profile
	Hash      string
	VersionID string // store version, empty when loaded straight from a file

	bounds []safety.Bounds
	names  []string
}

// Recorder persists clip calls.
type Recorder interface {
	Record(entry logging.ClipLogEntry) error
}

// SQLRecorder writes to the clip_log table.
type SQLRecorder struct {
	DB *sql.DB
}

func (r SQLRecorder) Record(entry logging.ClipLogEntry) error {
	return logging.LogClip(r.DB, entry)
}

// Outcome is what Guard.Clip returns in addition to the pure result.
type Outcome struct {
	RecordID string
	Result   safety.ClipResult
	Active   *ActiveProfile
}

// UnsafeError is returned by Forward when the clipped action must not be applied.
type UnsafeError struct {
	RecordID string
	Result   safety.ClipResult
}

func (e *UnsafeError) Error() string {
	for _, s := range e.Result.Stats {
		if s.Violation == safety.ViolationInvariantBreach {
			if s.Dimension < 0 {
				return fmt.Sprintf("unsafe action %s: %s", e.RecordID, s.Message)
			}
			return fmt.Sprintf("unsafe action %s: dimension %d: %s", e.RecordID, s.Dimension, s.Message)
		}
	}
	return fmt.Sprintf("unsafe action %s", e.RecordID)
}

// ErrNoProfile is returned when a Guard is built without bounds.
var ErrNoProfile = errors.New("guard has no profile")

// #endregion types

// #region guard
// Guard enforces the active bounds profile for a running process. The clip
// itself stays pure; Guard adds profile swapping, metrics, telemetry and the
// clip log around it. Safe for concurrent use.
type Guard struct {
	active   atomic.Pointer[ActiveProfile]
	metrics  metrics.Metrics
	tracker  *telemetry.Tracker
	recorder Recorder

	initialVersion string
}

// New creates a guard enforcing p.
func New(p *config.Profile, hash string, opts ...Option) (*Guard, error) {
	g := &Guard{metrics: metrics.Noop{}}
	for _, o := range opts {
		o(g)
	}
	if err := g.SetProfile(p, hash, g.initialVersion); err != nil {
		return nil, err
	}
	return g, nil
}

// SetProfile validates p and swaps it in. On error the previous profile
// stays in force.
func (g *Guard) SetProfile(p *config.Profile, hash, versionID string) error {
	if p == nil {
		return ErrNoProfile
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	for _, w := range p.Warnings() {
		logging.Warn("guard", w, "profile", p.Name)
	}
	g.active.Store(&ActiveProfile{
		Profile:   p,
		Hash:      hash,
		VersionID: versionID,
		bounds:    p.Bounds(),
		names:     p.Names(),
	})
	return nil
}

// Active returns the profile currently in force.
func (g *Guard) Active() *ActiveProfile {
	return g.active.Load()
}

// Clip runs the envelope with the active bounds and emits telemetry.
// Recorder failures are logged and never change the result.
func (g *Guard) Clip(proposed safety.Action, context safety.ContextState) Outcome {
	a := g.active.Load()
	res := safety.Clip(proposed, context, a.bounds)
	out := Outcome{
		RecordID: uuid.New().String(),
		Result:   res,
		Active:   a,
	}

	g.metrics.ObserveClip(res, a.names)
	if g.tracker != nil {
		g.tracker.Record(res)
	}
	if !res.IsSafe {
		logging.Warn("guard", "invariant breach", "record", out.RecordID, "profile", a.Profile.Name,
			"proposed_dims", len(proposed), "bounds_dims", len(a.bounds))
	}
	if g.recorder != nil {
		err := g.recorder.Record(logging.ClipLogEntry{
			RecordID:         out.RecordID,
			ProfileVersionID: a.VersionID,
			ProfileHash:      a.Hash,
			Proposed:         proposed,
			Context:          context,
			Result:           res,
		})
		if err != nil {
			logging.Error("guard", "record clip failed", "record", out.RecordID, "err", err)
		}
	}
	return out
}

// Forward clips proposed and hands the clamped action to apply only when the
// result is safe. Unsafe results return *UnsafeError and apply is not called.
func (g *Guard) Forward(proposed safety.Action, context safety.ContextState, apply func(safety.Action) error) (Outcome, error) {
	out := g.Clip(proposed, context)
	if !out.Result.IsSafe {
		return out, &UnsafeError{RecordID: out.RecordID, Result: out.Result}
	}
	if err := apply(out.Result.ClampedAction); err != nil {
		return out, fmt.Errorf("apply action %s: %w", out.RecordID, err)
	}
	return out, nil
}

// #endregion guard
