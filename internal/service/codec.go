package service

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/guard"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// Messages travel as google.protobuf.Struct. Numbers use the binary double
// encoding, so NaN and ±Inf survive the wire; strings such as "NaN" are also
// accepted on decode for clients that cannot produce them.

// #region encode
// EncodeClipRequest builds the Clip request message.
func EncodeClipRequest(proposed safety.Action, state safety.ContextState) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"proposed": numberList(proposed),
	}
	if len(state) > 0 {
		fields["context"] = numberList(state)
	}
	return &structpb.Struct{Fields: fields}
}

// EncodeOutcome builds the Clip response message.
func EncodeOutcome(out guard.Outcome) *structpb.Struct {
	stats := make([]*structpb.Value, len(out.Result.Stats))
	for i, s := range out.Result.Stats {
		stats[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"dimension":      structpb.NewNumberValue(float64(s.Dimension)),
			"violation":      structpb.NewStringValue(s.Violation.String()),
			"original_value": structpb.NewNumberValue(s.OriginalValue),
			"clipped_value":  structpb.NewNumberValue(s.ClippedValue),
			"was_modified":   structpb.NewBoolValue(s.WasModified),
			"message":        structpb.NewStringValue(s.Message),
		}})
	}
	fields := map[string]*structpb.Value{
		"record_id":      structpb.NewStringValue(out.RecordID),
		"is_safe":        structpb.NewBoolValue(out.Result.IsSafe),
		"clamped_action": numberList(out.Result.ClampedAction),
		"stats":          structpb.NewListValue(&structpb.ListValue{Values: stats}),
	}
	if out.Active != nil {
		fields["profile"] = structpb.NewStringValue(out.Active.Profile.Name)
		fields["profile_hash"] = structpb.NewStringValue(out.Active.Hash)
	}
	return &structpb.Struct{Fields: fields}
}

// EncodeProfile builds the ActiveBounds response message.
func EncodeProfile(a *guard.ActiveProfile) *structpb.Struct {
	dims := make([]*structpb.Value, len(a.Profile.Dimensions))
	for i, d := range a.Profile.Dimensions {
		dims[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":       structpb.NewStringValue(d.Name),
			"lower_hard": structpb.NewNumberValue(d.Bounds.LowerHard),
			"upper_hard": structpb.NewNumberValue(d.Bounds.UpperHard),
			"lower_soft": structpb.NewNumberValue(d.Bounds.LowerSoft),
			"upper_soft": structpb.NewNumberValue(d.Bounds.UpperSoft),
		}})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":       structpb.NewStringValue(a.Profile.Name),
		"hash":       structpb.NewStringValue(a.Hash),
		"version_id": structpb.NewStringValue(a.VersionID),
		"dimensions": structpb.NewListValue(&structpb.ListValue{Values: dims}),
	}}
}

func numberList(vals []float64) *structpb.Value {
	list := make([]*structpb.Value, len(vals))
	for i, v := range vals {
		list[i] = structpb.NewNumberValue(v)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

// #endregion encode

// #region decode
// DecodeClipRequest extracts the proposed action and context.
func DecodeClipRequest(req *structpb.Struct) (safety.Action, safety.ContextState, error) {
	proposed, err := numbers(req.GetFields()["proposed"], "proposed")
	if err != nil {
		return nil, nil, err
	}
	var state []float64
	if v, ok := req.GetFields()["context"]; ok {
		state, err = numbers(v, "context")
		if err != nil {
			return nil, nil, err
		}
	}
	return proposed, state, nil
}

// RemoteResult is a decoded Clip response.
type RemoteResult struct {
	RecordID    string
	Profile     string
	ProfileHash string
	Result      safety.ClipResult
}

// DecodeOutcome parses a Clip response.
func DecodeOutcome(resp *structpb.Struct) (RemoteResult, error) {
	f := resp.GetFields()
	clamped, err := numbers(f["clamped_action"], "clamped_action")
	if err != nil {
		return RemoteResult{}, err
	}
	out := RemoteResult{
		RecordID:    f["record_id"].GetStringValue(),
		Profile:     f["profile"].GetStringValue(),
		ProfileHash: f["profile_hash"].GetStringValue(),
		Result: safety.ClipResult{
			ClampedAction: clamped,
			IsSafe:        f["is_safe"].GetBoolValue(),
		},
	}
	for i, v := range f["stats"].GetListValue().GetValues() {
		sf := v.GetStructValue().GetFields()
		kind, err := safety.ParseViolationKind(sf["violation"].GetStringValue())
		if err != nil {
			return RemoteResult{}, fmt.Errorf("stats[%d]: %w", i, err)
		}
		out.Result.Stats = append(out.Result.Stats, safety.ClipStats{
			Dimension:     int(sf["dimension"].GetNumberValue()),
			Violation:     kind,
			OriginalValue: sf["original_value"].GetNumberValue(),
			ClippedValue:  sf["clipped_value"].GetNumberValue(),
			WasModified:   sf["was_modified"].GetBoolValue(),
			Message:       sf["message"].GetStringValue(),
		})
	}
	return out, nil
}

// RemoteProfile is a decoded ActiveBounds response.
type RemoteProfile struct {
	Hash      string
	VersionID string
	Profile   config.Profile
}

// DecodeProfile parses an ActiveBounds response.
func DecodeProfile(resp *structpb.Struct) (RemoteProfile, error) {
	f := resp.GetFields()
	rp := RemoteProfile{
		Hash:      f["hash"].GetStringValue(),
		VersionID: f["version_id"].GetStringValue(),
		Profile:   config.Profile{Name: f["name"].GetStringValue()},
	}
	for i, v := range f["dimensions"].GetListValue().GetValues() {
		df := v.GetStructValue().GetFields()
		b := safety.Bounds{}
		var err error
		for key, dst := range map[string]*float64{
			"lower_hard": &b.LowerHard,
			"upper_hard": &b.UpperHard,
			"lower_soft": &b.LowerSoft,
			"upper_soft": &b.UpperSoft,
		} {
			if *dst, err = number(df[key]); err != nil {
				return RemoteProfile{}, fmt.Errorf("dimensions[%d].%s: %w", i, key, err)
			}
		}
		rp.Profile.Dimensions = append(rp.Profile.Dimensions, config.Dimension{
			Name:   df["name"].GetStringValue(),
			Bounds: b,
		})
	}
	return rp, nil
}

func numbers(v *structpb.Value, field string) ([]float64, error) {
	if v == nil {
		return nil, fmt.Errorf("%s: missing", field)
	}
	lv, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s: expected list", field)
	}
	out := make([]float64, len(lv.ListValue.GetValues()))
	for i, item := range lv.ListValue.GetValues() {
		n, err := number(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out[i] = n
	}
	return out, nil
}

func number(v *structpb.Value) (float64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_StringValue:
		return safety.ParseValue(k.StringValue)
	default:
		return 0, fmt.Errorf("expected number, got %T", k)
	}
}

// #endregion decode
