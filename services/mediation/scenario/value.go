// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind tags which field of a Value is populated.
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindNumber
	KindLabel
	KindBool
)

// String returns the kind name used in error messages.
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindLabel:
		return "label"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a single agreement parameter value: a number, an enum label or a
// boolean. It decodes from plain JSON and YAML scalars.
type Value struct {
	kind  ValueKind
	num   float64
	label string
	flag  bool
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Label returns an enum-label Value.
func Label(s string) Value { return Value{kind: KindLabel, label: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Kind reports which representation v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Float returns the numeric value and whether v is a number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Text returns the label and whether v is a label.
func (v Value) Text() (string, bool) { return v.label, v.kind == KindLabel }

// Flag returns the boolean and whether v is a boolean.
func (v Value) Flag() (bool, bool) { return v.flag, v.kind == KindBool }

// String formats v for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindLabel:
		return strconv.Quote(v.label)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return "<invalid>"
	}
}

// tableKey is the key used to look v up in a table-form curve.
func (v Value) tableKey() string {
	if v.kind == KindBool {
		return strconv.FormatBool(v.flag)
	}
	return v.label
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindLabel:
		return json.Marshal(v.label)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = Number(t)
	case string:
		*v = Label(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("parameter value must be a number, string or boolean, got %s", string(data))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindLabel:
		return v.label, nil
	case KindBool:
		return v.flag, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parameter value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Number(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	default:
		*v = Label(node.Value)
	}
	return nil
}
