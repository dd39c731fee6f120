package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
)

// #region export
// ExportFixture turns logged clip calls into a regression fixture. entries
// arrive newest first (as ListClips returns them) and are written oldest
// first; each logged result becomes the expectation for its tick.
func ExportFixture(description string, profile config.Profile, entries []logging.ClipLogEntry) *Fixture {
	f := &Fixture{
		Description:     description,
		Profile:         profile,
		Ticks:           make([]FixtureTick, 0, len(entries)),
		ExpectedResults: make([]Expectation, 0, len(entries)),
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		safe := e.Result.IsSafe
		f.Ticks = append(f.Ticks, FixtureTick{
			TickID:   e.RecordID,
			Proposed: e.Proposed,
			Context:  e.Context,
		})
		f.ExpectedResults = append(f.ExpectedResults, Expectation{
			TickID:  e.RecordID,
			IsSafe:  &safe,
			Kinds:   kindsOf(e.Result),
			Clamped: e.Result.ClampedAction,
		})
	}
	return f
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion export
