package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadProfile_Testdata(t *testing.T) {
	p, hash, err := LoadProfile(filepath.Join("testdata", "two_joint.yaml"))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Name != "two-joint-arm" {
		t.Errorf("expected name two-joint-arm, got %q", p.Name)
	}
	if !strings.HasPrefix(hash, "sha256:") || len(hash) != len("sha256:")+64 {
		t.Errorf("unexpected hash %q", hash)
	}
	want := []safety.Bounds{
		safety.MustBounds(-10, 10, -5, 5),
		safety.MustBounds(-1, 1, -0.5, 0.5),
	}
	got := p.Bounds()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dimension %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if names := p.Names(); names[0] != "shoulder" || names[1] != "elbow" {
		t.Errorf("unexpected names %v", names)
	}
	if len(p.Warnings()) != 0 {
		t.Errorf("expected no warnings, got %v", p.Warnings())
	}
}

func TestParseProfile_Defaults(t *testing.T) {
	p, err := ParseProfile([]byte(`
dimensions:
  - lower_hard: -2
    upper_hard: 2
  - {}
  - upper_hard: .inf
    lower_soft: -1
`))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	b := p.Bounds()

	if b[0] != safety.MustBounds(-2, 2, -2, 2) {
		t.Errorf("soft limits should default to hard limits, got %+v", b[0])
	}
	if b[1] != safety.Unbounded() {
		t.Errorf("empty dimension should be unbounded, got %+v", b[1])
	}
	if !math.IsInf(b[2].LowerHard, -1) || b[2].LowerSoft != -1 || !math.IsInf(b[2].UpperSoft, 1) {
		t.Errorf("unexpected third dimension %+v", b[2])
	}
	if names := p.Names(); names[0] != "dim0" || names[2] != "dim2" {
		t.Errorf("expected generated names, got %v", names)
	}
}

func TestParseProfile_RejectsOrdering(t *testing.T) {
	_, err := ParseProfile([]byte(`
dimensions:
  - name: ok
    lower_hard: -1
    upper_hard: 1
  - name: bad
    lower_hard: -1
    upper_hard: 1
    upper_soft: 3
`))
	if !errors.Is(err, safety.ErrBoundsOrder) {
		t.Fatalf("expected ErrBoundsOrder, got %v", err)
	}
	if !strings.Contains(err.Error(), "dimension 1") {
		t.Fatalf("error should name the dimension: %v", err)
	}
}

func TestParseProfile_RejectsNaN(t *testing.T) {
	_, err := ParseProfile([]byte("dimensions:\n  - lower_hard: .nan\n"))
	if !errors.Is(err, safety.ErrBoundsNaN) {
		t.Fatalf("expected ErrBoundsNaN, got %v", err)
	}
}

func TestParseProfile_RejectsEmpty(t *testing.T) {
	_, err := ParseProfile([]byte("name: empty\n"))
	if !errors.Is(err, ErrNoDimensions) {
		t.Fatalf("expected ErrNoDimensions, got %v", err)
	}
}

func TestParseProfile_RejectsDuplicateNames(t *testing.T) {
	_, err := ParseProfile([]byte("dimensions:\n  - name: a\n  - name: a\n"))
	if err == nil || !strings.Contains(err.Error(), "already used") {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestParseProfile_UnknownKey(t *testing.T) {
	_, err := ParseProfile([]byte(`
dimensions:
  - name: shoulder
    lower_hard: -10
    uper_hard: 10
`))
	if err == nil || !strings.Contains(err.Error(), "uper_hard") {
		t.Fatalf("expected unknown key error naming uper_hard, got %v", err)
	}

	if _, err := ParseProfile([]byte("nmae: arm\ndimensions:\n  - upper_hard: 1\n    lower_hard: -1\n")); err == nil {
		t.Fatal("expected unknown top-level key error")
	}
}

func TestParseProfile_EmptyDocument(t *testing.T) {
	if _, err := ParseProfile(nil); !errors.Is(err, ErrNoDimensions) {
		t.Fatalf("expected ErrNoDimensions, got %v", err)
	}
}

func TestParseProfile_InvalidYAML(t *testing.T) {
	if _, err := ParseProfile([]byte("dimensions: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, _, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadProfile_HashTracksContent(t *testing.T) {
	a := writeProfile(t, "dimensions:\n  - upper_hard: 1\n")
	b := writeProfile(t, "dimensions:\n  - upper_hard: 2\n")
	_, ha, err := LoadProfile(a)
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	_, hb, err := LoadProfile(b)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if ha == hb {
		t.Fatal("different contents should hash differently")
	}
}

func TestWarnings_ZeroExcluded(t *testing.T) {
	p, err := ParseProfile([]byte("dimensions:\n  - name: lift\n    lower_hard: 2\n    upper_hard: 5\n"))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	w := p.Warnings()
	if len(w) != 1 || !strings.Contains(w[0], `"lift"`) {
		t.Fatalf("expected one warning for lift, got %v", w)
	}
}

func TestNewProfile(t *testing.T) {
	p, err := NewProfile("inline", []string{"x"}, []safety.Bounds{safety.Unbounded(), safety.Unbounded()})
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	if names := p.Names(); names[0] != "x" || names[1] != "dim1" {
		t.Fatalf("unexpected names %v", names)
	}
	if _, err := NewProfile("bad", nil, []safety.Bounds{{LowerHard: 1, UpperHard: 0}}); err == nil {
		t.Fatal("expected validation error")
	}
}
