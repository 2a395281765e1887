package degiro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ValueKind tags which arm of a FlexValue is set.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueNumber
	ValueMap
)

// FlexValue is a field whose JSON type varies between payloads: a string, a
// number or an object of numbers. Decoding tries those three in that order.
type FlexValue struct {
	Kind   ValueKind
	String string
	Number float64
	Map    map[string]float64
}

func StringValue(s string) FlexValue { return FlexValue{Kind: ValueString, String: s} }

func NumberValue(n float64) FlexValue { return FlexValue{Kind: ValueNumber, Number: n} }

func MapValue(m map[string]float64) FlexValue { return FlexValue{Kind: ValueMap, Map: m} }

var errNoVariant = errors.New("value is neither string, number nor object of numbers")

func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = FlexValue{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err == nil {
		*v = MapValue(m)
		return nil
	}
	return fmt.Errorf("%w: %s", errNoVariant, truncateBody(data, 64))
}

func (v FlexValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.String)
	case ValueNumber:
		return json.Marshal(v.Number)
	case ValueMap:
		return json.Marshal(v.Map)
	default:
		return []byte("null"), nil
	}
}

// Float returns the number arm. Strings are not parsed.
func (v FlexValue) Float() (float64, bool) {
	if v.Kind != ValueNumber {
		return 0, false
	}
	return v.Number, true
}
