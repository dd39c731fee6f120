package replay

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

func logged(id string, proposed safety.Action) logging.ClipLogEntry {
	return logging.ClipLogEntry{
		RecordID: id,
		Proposed: proposed,
		Result:   safety.Clip(proposed, nil, twoJoint()),
	}
}

func TestExportFixture_RoundTrip(t *testing.T) {
	p, err := config.NewProfile("two-joint", []string{"shoulder", "elbow"}, twoJoint())
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	// Newest first, as ListClips returns them.
	entries := []logging.ClipLogEntry{
		logged("r4", safety.Action{1, 2, 3}),
		logged("r3", safety.Action{math.NaN(), 0}),
		logged("r2", safety.Action{12, -2}),
		logged("r1", safety.Action{6, 0}),
	}

	f := ExportFixture("exported", *p, entries)
	if f.Ticks[0].TickID != "r1" || f.Ticks[3].TickID != "r4" {
		t.Fatalf("ticks not chronological: %s..%s", f.Ticks[0].TickID, f.Ticks[3].TickID)
	}

	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if !math.IsNaN(loaded.Ticks[2].Proposed[0]) {
		t.Fatalf("NaN lost in export: %v", loaded.Ticks[2].Proposed)
	}

	_, mismatches := loaded.Run()
	for _, m := range mismatches {
		t.Error(m.String())
	}
}

func TestExportFixture_Empty(t *testing.T) {
	f := ExportFixture("", config.Profile{}, nil)
	if len(f.Ticks) != 0 || len(f.ExpectedResults) != 0 {
		t.Fatalf("expected empty fixture, got %d ticks", len(f.Ticks))
	}
}
