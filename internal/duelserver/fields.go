package duelserver

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// intField reads an integral number field, returning def when it is absent.
func intField(req *structpb.Struct, name string, def int) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be an integer, got %v", name, f)
	}
	return int(f), nil
}

// stringField reads a string field, returning def when it is absent.
func stringField(req *structpb.Struct, name, def string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return def, nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return s.StringValue, nil
}

// stringListField reads a list of strings; absent means empty.
func stringListField(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", name)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for i, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", name, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
