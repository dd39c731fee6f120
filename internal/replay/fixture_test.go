package replay

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture_Scenarios(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "two_joint.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(f.Ticks) != 5 || len(f.ExpectedResults) != 5 {
		t.Fatalf("unexpected fixture sizes: %d ticks, %d expectations", len(f.Ticks), len(f.ExpectedResults))
	}
	if !math.IsNaN(f.Ticks[3].Proposed[0]) {
		t.Fatalf("expected NaN decoded from string, got %v", f.Ticks[3].Proposed[0])
	}

	results, mismatches := f.Run()
	if len(mismatches) != 0 {
		for _, m := range mismatches {
			t.Error(m.String())
		}
		t.FailNow()
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
}

func TestLoadFixture_InvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	body := `{"profile": {"name": "bad", "dimensions": [{"name": "x", "bounds": {"lower_hard": 1, "upper_hard": -1}}]}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoadFixture_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFixture_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.json")
	body := `{"profile": {"name": "arm", "dimensions": [{"name": "x", "bounds": {"lower_hard": -1, "upper_hard": 1}}]},
  "ticks": [{"tick_id": "t1", "propsed": [5]}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}
