package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// ErrNoDimensions is returned for a profile that declares no dimensions.
var ErrNoDimensions = errors.New("profile declares no dimensions")

// #region types
// Dimension is one named, resolved entry of a bounds profile.
type Dimension struct {
	Name   string        `json:"name"`
	Bounds safety.Bounds `json:"bounds"`
}

// Profile is a named set of per-dimension bounds, in action order.
type Profile struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Dimensions  []Dimension `json:"dimensions"`
}

// rawDimension is the on-disk form. Pointers distinguish "unset" from 0.
type rawDimension struct {
	Name      string   `yaml:"name"`
	LowerHard *float64 `yaml:"lower_hard"`
	UpperHard *float64 `yaml:"upper_hard"`
	LowerSoft *float64 `yaml:"lower_soft"`
	UpperSoft *float64 `yaml:"upper_soft"`
}

type rawProfile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Dimensions  []rawDimension `yaml:"dimensions"`
}

// #endregion types

// #region load
// LoadProfile reads, parses and validates a YAML profile and returns it
// together with the sha256 of the raw file. A missing file is an error:
// there is no implicit "unbounded" fallback for a safety envelope.
func LoadProfile(path string) (*Profile, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read profile %s: %w", path, err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, "", fmt.Errorf("profile %s: %w", path, err)
	}
	return p, HashBytes(data), nil
}

// ParseProfile decodes YAML into a validated Profile. Unknown keys are
// rejected: a misspelled limit would otherwise leave that side unbounded.
func ParseProfile(data []byte) (*Profile, error) {
	var raw rawProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	p := &Profile{
		Name:        raw.Name,
		Description: raw.Description,
		Dimensions:  make([]Dimension, 0, len(raw.Dimensions)),
	}
	for i, rd := range raw.Dimensions {
		p.Dimensions = append(p.Dimensions, rd.resolve(i))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// HashBytes returns the "sha256:<hex>" digest used to identify profile contents.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// resolve fills defaults: unset hard limits are unbounded, unset soft limits
// fall back to the hard limit on the same side.
func (rd rawDimension) resolve(i int) Dimension {
	name := rd.Name
	if name == "" {
		name = fmt.Sprintf("dim%d", i)
	}
	lowerHard := valueOr(rd.LowerHard, math.Inf(-1))
	upperHard := valueOr(rd.UpperHard, math.Inf(1))
	return Dimension{
		Name: name,
		Bounds: safety.Bounds{
			LowerHard: lowerHard,
			UpperHard: upperHard,
			LowerSoft: valueOr(rd.LowerSoft, lowerHard),
			UpperSoft: valueOr(rd.UpperSoft, upperHard),
		},
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// #endregion load

// #region profile-methods
// NewProfile builds a validated profile from bounds. Missing names are
// filled with "dim<i>".
func NewProfile(name string, names []string, bounds []safety.Bounds) (*Profile, error) {
	p := &Profile{Name: name, Dimensions: make([]Dimension, len(bounds))}
	for i, b := range bounds {
		dn := ""
		if i < len(names) {
			dn = names[i]
		}
		if dn == "" {
			dn = fmt.Sprintf("dim%d", i)
		}
		p.Dimensions[i] = Dimension{Name: dn, Bounds: b}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks dimension count, name uniqueness and bounds ordering.
func (p *Profile) Validate() error {
	if len(p.Dimensions) == 0 {
		return ErrNoDimensions
	}
	seen := make(map[string]int, len(p.Dimensions))
	for i, d := range p.Dimensions {
		if j, dup := seen[d.Name]; dup {
			return fmt.Errorf("dimension %d: name %q already used by dimension %d", i, d.Name, j)
		}
		seen[d.Name] = i
	}
	if err := safety.ValidateAll(p.Bounds()); err != nil {
		return fmt.Errorf("validate bounds: %w", err)
	}
	return nil
}

// Bounds returns the bounds in action order.
func (p *Profile) Bounds() []safety.Bounds {
	out := make([]safety.Bounds, len(p.Dimensions))
	for i, d := range p.Dimensions {
		out[i] = d.Bounds
	}
	return out
}

// Names returns the dimension names in action order.
func (p *Profile) Names() []string {
	out := make([]string, len(p.Dimensions))
	for i, d := range p.Dimensions {
		out[i] = d.Name
	}
	return out
}

// Warnings lists conditions that load fine but deserve operator attention.
// Currently: hard envelopes that exclude zero, where the neutralized value
// of an invariant breach would itself be out of bounds.
func (p *Profile) Warnings() []string {
	var warnings []string
	for _, d := range p.Dimensions {
		if !d.Bounds.ContainsZero() {
			warnings = append(warnings, fmt.Sprintf(
				"dimension %q: hard bounds [%s, %s] exclude 0, the fail-safe value for invariant breaches",
				d.Name, safety.FormatValue(d.Bounds.LowerHard), safety.FormatValue(d.Bounds.UpperHard)))
		}
	}
	return warnings
}

// #endregion profile-methods
