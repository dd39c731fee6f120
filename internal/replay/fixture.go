package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string         `json:"description"`
	Profile         config.Profile `json:"profile"`
	Ticks           []FixtureTick  `json:"ticks"`
	ExpectedResults []Expectation  `json:"expected_results"`
}

// FixtureTick mirrors Tick with JSON tags. Non-finite values are written as
// "NaN", "+Inf" or "-Inf".
type FixtureTick struct {
	TickID   string              `json:"tick_id"`
	Proposed safety.Action       `json:"proposed"`
	Context  safety.ContextState `json:"context,omitempty"`
}

// Expectation captures the expected outcome of one tick.
type Expectation struct {
	TickID  string                 `json:"tick_id"`
	IsSafe  *bool                  `json:"is_safe,omitempty"`
	Kinds   []safety.ViolationKind `json:"kinds,omitempty"`
	Clamped safety.Action          `json:"clamped,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file. The embedded profile is
// validated; a fixture with malformed bounds is rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToTick converts a FixtureTick to a domain Tick.
func (ft *FixtureTick) ToTick() Tick {
	return Tick{
		TickID:   ft.TickID,
		Proposed: ft.Proposed,
		Context:  ft.Context,
	}
}

// TickList converts every fixture tick.
func (f *Fixture) TickList() []Tick {
	ticks := make([]Tick, len(f.Ticks))
	for i := range f.Ticks {
		ticks[i] = f.Ticks[i].ToTick()
	}
	return ticks
}

// Run replays the fixture and verifies it.
func (f *Fixture) Run() ([]TickResult, []Mismatch) {
	results := Replay(f.Profile.Bounds(), f.TickList())
	return results, Verify(results, f.ExpectedResults)
}

// #endregion fixture-loader
