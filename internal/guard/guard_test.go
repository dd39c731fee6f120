package guard

import (
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/telemetry"
)

// #region helpers
func armProfile(t *testing.T, upper float64) *config.Profile {
	t.Helper()
	p, err := config.NewProfile("arm", []string{"shoulder", "elbow"}, []safety.Bounds{
		safety.MustBounds(-upper, upper, -upper/2, upper/2),
		safety.MustBounds(-1, 1, -0.5, 0.5),
	})
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	return p
}

type memRecorder struct {
	mu      sync.Mutex
	entries []logging.ClipLogEntry
	err     error
}

func (m *memRecorder) Record(e logging.ClipLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

type spyMetrics struct {
	clips   int
	names   []string
	reloads int
}

func (s *spyMetrics) ObserveClip(_ safety.ClipResult, names []string) {
	s.clips++
	s.names = names
}

func (s *spyMetrics) ObserveReload(bool) { s.reloads++ }

// #endregion helpers

// #region clip-tests
func TestGuard_ClipUsesActiveBounds(t *testing.T) {
	g, err := New(armProfile(t, 10), "sha256:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := g.Clip(safety.Action{12, -2}, nil)

	if !out.Result.IsSafe {
		t.Fatal("expected safe result")
	}
	if out.Result.ClampedAction[0] != 10 || out.Result.ClampedAction[1] != -1 {
		t.Fatalf("unexpected clamped %v", out.Result.ClampedAction)
	}
	if out.RecordID == "" {
		t.Fatal("expected record id")
	}
	if out.Active.Hash != "sha256:1" {
		t.Fatalf("expected active hash sha256:1, got %s", out.Active.Hash)
	}
}

func TestGuard_TelemetryAndRecorder(t *testing.T) {
	tr := telemetry.NewTracker()
	rec := &memRecorder{}
	spy := &spyMetrics{}
	g, err := New(armProfile(t, 10), "h", WithTracker(tr), WithRecorder(rec), WithMetrics(spy))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g.Clip(safety.Action{6, 0}, safety.ContextState{1})
	out := g.Clip(safety.Action{math.NaN(), 0}, nil)

	if s := tr.Snapshot(); s.Ticks != 2 || s.UnsafeTicks != 1 {
		t.Fatalf("unexpected tracker summary %+v", s)
	}
	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 recorded entries, got %d", len(rec.entries))
	}
	if rec.entries[1].RecordID != out.RecordID || rec.entries[1].ProfileHash != "h" {
		t.Fatalf("unexpected recorded entry %+v", rec.entries[1])
	}
	if spy.clips != 2 || spy.names[0] != "shoulder" {
		t.Fatalf("metrics not observed: %+v", spy)
	}
}

func TestGuard_RecorderErrorDoesNotChangeResult(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	g, err := New(armProfile(t, 10), "", WithRecorder(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := g.Clip(safety.Action{0, 0}, nil)
	if !out.Result.IsSafe || len(out.Result.Stats) != 2 {
		t.Fatalf("recorder failure leaked into result: %+v", out.Result)
	}
}

func TestGuard_SQLRecorder(t *testing.T) {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "guard.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	g, err := New(armProfile(t, 10), "h", WithRecorder(SQLRecorder{DB: st.DB()}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := g.Clip(safety.Action{1, 2, 3}, nil)

	entries, err := logging.ListClips(st.DB(), logging.ClipFilter{})
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(entries) != 1 || entries[0].RecordID != out.RecordID || entries[0].Result.IsSafe {
		t.Fatalf("unexpected clip log %+v", entries)
	}
}

// #endregion clip-tests

// #region profile-tests
// countingRecorder counts failed writes of the wrapped recorder.
type countingRecorder struct {
	next   Recorder
	mu     sync.Mutex
	failed int
	first  error
}

func (c *countingRecorder) Record(e logging.ClipLogEntry) error {
	err := c.next.Record(e)
	if err != nil {
		c.mu.Lock()
		c.failed++
		if c.first == nil {
			c.first = err
		}
		c.mu.Unlock()
	}
	return err
}

func TestGuard_SQLRecorderConcurrent(t *testing.T) {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "guard.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	rec := &countingRecorder{next: SQLRecorder{DB: st.DB()}}
	g, err := New(armProfile(t, 10), "h", WithRecorder(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const workers, perWorker = 16, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				g.Clip(safety.Action{float64(w), 0.1}, nil)
			}
		}(w)
	}
	wg.Wait()

	if rec.failed != 0 {
		t.Fatalf("failed inserts: %d of %d; first err: %v", rec.failed, workers*perWorker, rec.first)
	}
	var n int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM clip_log`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != workers*perWorker {
		t.Fatalf("expected %d rows, got %d", workers*perWorker, n)
	}
}

func TestGuard_SetProfileRejectsInvalidKeepsPrevious(t *testing.T) {
	g, err := New(armProfile(t, 10), "old")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bad := &config.Profile{Name: "bad", Dimensions: []config.Dimension{{Name: "x", Bounds: safety.Bounds{LowerHard: 1, UpperHard: -1}}}}
	if err := g.SetProfile(bad, "new", ""); !errors.Is(err, safety.ErrBoundsOrder) {
		t.Fatalf("expected ErrBoundsOrder, got %v", err)
	}
	if g.Active().Hash != "old" {
		t.Fatalf("invalid profile replaced the active one")
	}
	if err := g.SetProfile(nil, "", ""); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
}

func TestGuard_SetProfileSwapsBounds(t *testing.T) {
	g, err := New(armProfile(t, 10), "v1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.SetProfile(armProfile(t, 20), "v2", "ver-2"); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	out := g.Clip(safety.Action{15, 0}, nil)
	if out.Result.ClampedAction[0] != 15 {
		t.Fatalf("expected new bounds to allow 15, got %v", out.Result.ClampedAction[0])
	}
	if out.Active.VersionID != "ver-2" {
		t.Fatalf("expected version ver-2, got %s", out.Active.VersionID)
	}
}

func TestNew_NilProfile(t *testing.T) {
	if _, err := New(nil, ""); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
}

func TestGuard_ConcurrentClipAndSwap(t *testing.T) {
	g, err := New(armProfile(t, 10), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p20 := armProfile(t, 20)
	p10 := armProfile(t, 10)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				g.SetProfile(p20, "", "")
			} else {
				g.SetProfile(p10, "", "")
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			out := g.Clip(safety.Action{50, 0}, nil)
			c := out.Result.ClampedAction[0]
			if c != 10 && c != 20 {
				t.Errorf("clamped value %v from neither profile", c)
				return
			}
		}
	}()
	wg.Wait()
}

// #endregion profile-tests

// #region forward-tests
func TestGuard_ForwardSafe(t *testing.T) {
	g, err := New(armProfile(t, 10), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var applied safety.Action
	_, err = g.Forward(safety.Action{12, 0}, nil, func(a safety.Action) error {
		applied = a
		return nil
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if applied[0] != 10 {
		t.Fatalf("expected clamped action forwarded, got %v", applied)
	}
}

func TestGuard_ForwardUnsafe(t *testing.T) {
	g, err := New(armProfile(t, 10), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	called := false
	_, err = g.Forward(safety.Action{0, math.Inf(1)}, nil, func(safety.Action) error {
		called = true
		return nil
	})
	var ue *UnsafeError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnsafeError, got %v", err)
	}
	if called {
		t.Fatal("apply must not run for unsafe results")
	}
	if ue.Error() == "" || ue.Result.IsSafe {
		t.Fatalf("unexpected error payload %+v", ue)
	}
}

func TestGuard_ForwardApplyError(t *testing.T) {
	g, err := New(armProfile(t, 10), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sentinel := errors.New("actuator offline")
	_, err = g.Forward(safety.Action{0, 0}, nil, func(safety.Action) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped apply error, got %v", err)
	}
}

// #endregion forward-tests
