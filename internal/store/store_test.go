package store

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testProfile(t *testing.T, name string, upper float64) *config.Profile {
	t.Helper()
	p, err := config.NewProfile(name, []string{"shoulder", "elbow"}, []safety.Bounds{
		safety.MustBounds(-upper, upper, -upper/2, upper/2),
		{LowerHard: math.Inf(-1), UpperHard: math.Inf(1), LowerSoft: -1, UpperSoft: 1},
	})
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	return p
}

func TestGetActive_Empty(t *testing.T) {
	s := tempStore(t)
	if _, err := s.GetActive(); !errors.Is(err, ErrNoActiveProfile) {
		t.Fatalf("expected ErrNoActiveProfile, got %v", err)
	}
}

func TestCommitAndGetActive(t *testing.T) {
	s := tempStore(t)

	v, err := s.CommitProfile(testProfile(t, "arm", 10), "sha256:aa")
	if err != nil {
		t.Fatalf("CommitProfile: %v", err)
	}
	if v.VersionID == "" || v.ParentID != "" {
		t.Fatalf("unexpected first version %+v", v)
	}

	active, err := s.GetActive()
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.VersionID != v.VersionID || !active.Active {
		t.Fatalf("expected active %s, got %+v", v.VersionID, active)
	}
	if active.Hash != "sha256:aa" || active.Profile.Name != "arm" {
		t.Fatalf("unexpected metadata %+v", active)
	}

	// Infinite limits survive the JSON column.
	b := active.Profile.Bounds()
	if b[0] != safety.MustBounds(-10, 10, -5, 5) {
		t.Fatalf("unexpected bounds %+v", b[0])
	}
	if !math.IsInf(b[1].UpperHard, 1) || !math.IsInf(b[1].LowerHard, -1) {
		t.Fatalf("infinite limits lost: %+v", b[1])
	}
	if active.Profile.Names()[1] != "elbow" {
		t.Fatalf("names lost: %v", active.Profile.Names())
	}
}

func TestCommitChainsParentAndActivateRollsBack(t *testing.T) {
	s := tempStore(t)

	v1, err := s.CommitProfile(testProfile(t, "arm", 10), "sha256:01")
	if err != nil {
		t.Fatalf("commit v1: %v", err)
	}
	v2, err := s.CommitProfile(testProfile(t, "arm", 20), "sha256:02")
	if err != nil {
		t.Fatalf("commit v2: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentID)
	}

	if err := s.Activate(v1.VersionID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	active, err := s.GetActive()
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.VersionID != v1.VersionID {
		t.Fatalf("expected rollback to %s, got %s", v1.VersionID, active.VersionID)
	}

	if err := s.Activate("missing"); err == nil {
		t.Fatal("expected error activating unknown version")
	}
}

func TestListVersions(t *testing.T) {
	s := tempStore(t)
	var ids []string
	for i := 1; i <= 3; i++ {
		v, err := s.CommitProfile(testProfile(t, "arm", float64(i)), "sha256:x")
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		ids = append(ids, v.VersionID)
	}

	versions, err := s.ListVersions(2)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].VersionID != ids[2] || !versions[0].Active {
		t.Fatalf("expected newest active first, got %+v", versions[0])
	}
	if versions[1].Active {
		t.Fatal("only one version can be active")
	}
}

func TestCommitProfile_RejectsInvalid(t *testing.T) {
	s := tempStore(t)
	bad := &config.Profile{Name: "bad", Dimensions: []config.Dimension{{Name: "x", Bounds: safety.Bounds{LowerHard: 1, UpperHard: -1}}}}
	if _, err := s.CommitProfile(bad, ""); !errors.Is(err, safety.ErrBoundsOrder) {
		t.Fatalf("expected ErrBoundsOrder, got %v", err)
	}
}

func TestGetVersion_NotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.GetVersion("nope"); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestNewStore_ForeignKeysEnforced(t *testing.T) {
	s := tempStore(t)
	_, err := s.DB().Exec(`INSERT INTO active_profile (id, version_id) VALUES (1, 'missing')`)
	if err == nil {
		t.Fatal("expected foreign key violation for unknown version")
	}
}

func TestNewStore_TwoHandlesConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore a: %v", err)
	}
	defer a.Close()
	b, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore b: %v", err)
	}
	defer b.Close()

	res := safety.Clip(safety.Action{1}, nil, []safety.Bounds{safety.Unbounded()})
	const perHandle = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2*perHandle)
	for h, st := range []*Store{a, b} {
		wg.Add(1)
		go func(h int, st *Store) {
			defer wg.Done()
			for i := 0; i < perHandle; i++ {
				errs <- logging.LogClip(st.DB(), logging.ClipLogEntry{
					RecordID: fmt.Sprintf("h%d-%d", h, i),
					Proposed: safety.Action{1},
					Result:   res,
				})
			}
		}(h, st)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("LogClip: %v", err)
		}
	}

	var n int
	if err := a.DB().QueryRow(`SELECT COUNT(*) FROM clip_log`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2*perHandle {
		t.Fatalf("expected %d rows, got %d", 2*perHandle, n)
	}
}
