package safety

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewBounds_Valid(t *testing.T) {
	b, err := NewBounds(-10, 10, -5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.LowerHard != -10 || b.UpperHard != 10 || b.LowerSoft != -5 || b.UpperSoft != 5 {
		t.Fatalf("fields assigned in wrong order: %+v", b)
	}
}

func TestNewBounds_RejectsOutOfOrder(t *testing.T) {
	cases := []Bounds{
		{LowerHard: 1, UpperHard: -1, LowerSoft: 0, UpperSoft: 0},   // hard inverted
		{LowerHard: -1, UpperHard: 1, LowerSoft: -2, UpperSoft: 0},  // soft below hard
		{LowerHard: -1, UpperHard: 1, LowerSoft: 0, UpperSoft: 2},   // soft above hard
		{LowerHard: -1, UpperHard: 1, LowerSoft: 0.5, UpperSoft: 0}, // soft inverted
	}
	for _, c := range cases {
		_, err := NewBounds(c.LowerHard, c.UpperHard, c.LowerSoft, c.UpperSoft)
		if !errors.Is(err, ErrBoundsOrder) {
			t.Errorf("%+v: expected ErrBoundsOrder, got %v", c, err)
		}
	}
}

func TestNewBounds_RejectsNaN(t *testing.T) {
	_, err := NewBounds(math.NaN(), 1, 0, 0)
	if !errors.Is(err, ErrBoundsNaN) {
		t.Fatalf("expected ErrBoundsNaN, got %v", err)
	}
}

func TestNewBounds_AllowsInfinity(t *testing.T) {
	if _, err := NewBounds(math.Inf(-1), math.Inf(1), -1, 1); err != nil {
		t.Fatalf("infinite hard limits should be valid: %v", err)
	}
	if err := Unbounded().Validate(); err != nil {
		t.Fatalf("Unbounded should validate: %v", err)
	}
}

func TestHardOnly(t *testing.T) {
	b, err := HardOnly(-2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := Clip(Action{2}, nil, []Bounds{b})
	if res.Stats[0].Violation != ViolationNone {
		t.Fatalf("hard-only bounds should not raise soft flags, got %s", res.Stats[0].Violation)
	}
}

func TestMustBounds_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid bounds")
		}
	}()
	MustBounds(1, -1, 0, 0)
}

func TestValidateAll_ReportsDimension(t *testing.T) {
	bounds := []Bounds{
		MustBounds(-1, 1, -1, 1),
		{LowerHard: 5, UpperHard: -5},
	}
	err := ValidateAll(bounds)
	var be *BoundsError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BoundsError, got %v", err)
	}
	if be.Dimension != 1 {
		t.Fatalf("expected dimension 1, got %d", be.Dimension)
	}
	if !strings.Contains(err.Error(), "dimension 1") {
		t.Fatalf("error should name the dimension: %v", err)
	}
	if err := ValidateAll(twoJointBounds()); err != nil {
		t.Fatalf("valid bounds rejected: %v", err)
	}
}

func TestContainsZero(t *testing.T) {
	if !MustBounds(-1, 1, -1, 1).ContainsZero() {
		t.Fatal("expected zero inside [-1, 1]")
	}
	if MustBounds(2, 5, 3, 4).ContainsZero() {
		t.Fatal("expected zero outside [2, 5]")
	}
}

func TestViolationKind_Names(t *testing.T) {
	for _, k := range AllViolationKinds() {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("%d: %v", k, err)
		}
		var back ViolationKind
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if back != k {
			t.Fatalf("expected %s, got %s", k, back)
		}
	}
	if ViolationInvariantBreach.String() != "invariant_breach" {
		t.Fatalf("unexpected name %q", ViolationInvariantBreach.String())
	}
	if _, err := ParseViolationKind("bogus"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if ViolationKind(42).String() != "violation(42)" {
		t.Fatalf("unexpected fallback name %q", ViolationKind(42).String())
	}
}
