package safety

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// encoding/json rejects NaN and ±Inf, but those are exactly the inputs the
// envelope has to report on. Non-finite values are written as the strings
// "NaN", "+Inf" and "-Inf"; the decoders accept either form.

// #region json-number
type jsonNumber float64

func (f jsonNumber) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *jsonNumber) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseValue(s)
		if err != nil {
			return err
		}
		*f = jsonNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonNumber(v)
	return nil
}

// ParseValue parses a scalar, accepting "NaN", "Inf", "+Inf" and "-Inf".
func ParseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	return v, nil
}

// FormatValue is the inverse of ParseValue.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatAction renders an action as "[v0 v1 ...]" using FormatValue.
func FormatAction(a Action) string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = FormatValue(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func toJSONNumbers(vals []float64) []jsonNumber {
	if vals == nil {
		return nil
	}
	out := make([]jsonNumber, len(vals))
	for i, v := range vals {
		out[i] = jsonNumber(v)
	}
	return out
}

func fromJSONNumbers(nums []jsonNumber) []float64 {
	if nums == nil {
		return nil
	}
	out := make([]float64, len(nums))
	for i, n := range nums {
		out[i] = float64(n)
	}
	return out
}

// #endregion json-number

// #region action-json
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONNumbers(a))
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var nums []jsonNumber
	if err := json.Unmarshal(b, &nums); err != nil {
		return err
	}
	*a = fromJSONNumbers(nums)
	return nil
}

func (c ContextState) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONNumbers(c))
}

func (c *ContextState) UnmarshalJSON(b []byte) error {
	var nums []jsonNumber
	if err := json.Unmarshal(b, &nums); err != nil {
		return err
	}
	*c = fromJSONNumbers(nums)
	return nil
}

// #endregion action-json

// #region bounds-json
type boundsJSON struct {
	LowerHard jsonNumber `json:"lower_hard"`
	UpperHard jsonNumber `json:"upper_hard"`
	LowerSoft jsonNumber `json:"lower_soft"`
	UpperSoft jsonNumber `json:"upper_soft"`
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(boundsJSON{
		LowerHard: jsonNumber(b.LowerHard),
		UpperHard: jsonNumber(b.UpperHard),
		LowerSoft: jsonNumber(b.LowerSoft),
		UpperSoft: jsonNumber(b.UpperSoft),
	})
}

type boundsInJSON struct {
	LowerHard *jsonNumber `json:"lower_hard"`
	UpperHard *jsonNumber `json:"upper_hard"`
	LowerSoft *jsonNumber `json:"lower_soft"`
	UpperSoft *jsonNumber `json:"upper_soft"`
}

// UnmarshalJSON leaves omitted hard limits unbounded and defaults omitted
// soft limits to the hard limit on the same side. Unknown keys are rejected.
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var raw boundsInJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode bounds: %w", err)
	}
	lowerHard := numberOr(raw.LowerHard, math.Inf(-1))
	upperHard := numberOr(raw.UpperHard, math.Inf(1))
	*b = Bounds{
		LowerHard: lowerHard,
		UpperHard: upperHard,
		LowerSoft: numberOr(raw.LowerSoft, lowerHard),
		UpperSoft: numberOr(raw.UpperSoft, upperHard),
	}
	return nil
}

func numberOr(n *jsonNumber, fallback float64) float64 {
	if n == nil {
		return fallback
	}
	return float64(*n)
}

// #endregion bounds-json

// #region stats-json
type clipStatsJSON struct {
	Dimension     int           `json:"dimension"`
	Violation     ViolationKind `json:"violation"`
	OriginalValue jsonNumber    `json:"original_value"`
	ClippedValue  jsonNumber    `json:"clipped_value"`
	WasModified   bool          `json:"was_modified"`
	Message       string        `json:"message,omitempty"`
}

func (s ClipStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(clipStatsJSON{
		Dimension:     s.Dimension,
		Violation:     s.Violation,
		OriginalValue: jsonNumber(s.OriginalValue),
		ClippedValue:  jsonNumber(s.ClippedValue),
		WasModified:   s.WasModified,
		Message:       s.Message,
	})
}

func (s *ClipStats) UnmarshalJSON(data []byte) error {
	var raw clipStatsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ClipStats{
		Dimension:     raw.Dimension,
		Violation:     raw.Violation,
		OriginalValue: float64(raw.OriginalValue),
		ClippedValue:  float64(raw.ClippedValue),
		WasModified:   raw.WasModified,
		Message:       raw.Message,
	}
	return nil
}

// #endregion stats-json
