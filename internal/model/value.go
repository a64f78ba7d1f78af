package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/bobmcallan/humcp/internal/schema"
)

// ErrMalformedBody is returned by Parse when the body is not valid JSON.
var ErrMalformedBody = errors.New("malformed JSON body")

// State records how a field arrived in a request.
type State int

const (
	// Absent means the field was omitted.
	Absent State = iota
	// Null means the field was sent as JSON null.
	Null
	// Set means the field carries a value.
	Set
)

func (s State) String() string {
	switch s {
	case Null:
		return "null"
	case Set:
		return "set"
	default:
		return "absent"
	}
}

// Issue is a single validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a request body.
type ValidationError struct {
	Model  string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Field == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Message))
	}
	return fmt.Sprintf("invalid %s: %s", e.Model, strings.Join(parts, "; "))
}

// Value is a parsed model instance.
type Value struct {
	model  *Model
	values map[string]any
	states map[string]State
}

// Get returns a field's value and how it arrived.
func (v *Value) Get(name string) (any, State) {
	return v.values[name], v.states[name]
}

// Dump renders the value as a plain map. With excludeAbsent, omitted
// optional fields are left out; otherwise they appear as nil. Explicit
// nulls are always kept.
func (v *Value) Dump(excludeAbsent bool) map[string]any {
	out := make(map[string]any, len(v.model.Fields))
	for _, f := range v.model.Fields {
		state := v.states[f.Name]
		if state == Absent && excludeAbsent {
			continue
		}
		out[f.Name] = v.values[f.Name]
	}
	return out
}

// Parse decodes and validates a JSON request body. An empty body is treated
// as an empty object.
func (m *Model) Parse(body []byte) (*Value, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return m.ParseMap(map[string]any{})
	}

	// Numbers are decoded as json.Number so integers beyond 2^53 survive
	// until the field kind decides their Go type.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedBody)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{
			Model:  m.Name,
			Issues: []Issue{{Message: "input should be a JSON object"}},
		}
	}
	return m.ParseMap(obj)
}

// ParseMap validates already-decoded arguments. Keys that are not fields of
// the model are ignored.
func (m *Model) ParseMap(args map[string]any) (*Value, error) {
	v := &Value{
		model:  m,
		values: make(map[string]any, len(m.Fields)),
		states: make(map[string]State, len(m.Fields)),
	}

	// set keeps the decoded values for the schema validator, which
	// understands json.Number.
	set := make(map[string]any, len(m.Fields))
	var issues []Issue
	for _, f := range m.Fields {
		raw, present := args[f.Name]
		switch {
		case !present:
			if f.Required {
				issues = append(issues, Issue{Field: f.Name, Message: "field required"})
			}
			v.states[f.Name] = Absent
		case raw == nil:
			if f.Required {
				issues = append(issues, Issue{Field: f.Name, Message: "field required, got null"})
			}
			v.states[f.Name] = Null
			v.values[f.Name] = nil
		default:
			if msg := checkKind(f.Kind, f.Items, raw); msg != "" {
				issues = append(issues, Issue{Field: f.Name, Message: msg})
			}
			v.states[f.Name] = Set
			v.values[f.Name] = plain(raw, f.Kind, f.Items)
			set[f.Name] = raw
		}
	}

	if len(issues) == 0 && m.validator != nil {
		if err := m.validator.Validate(set); err != nil {
			issues = append(issues, Issue{Message: err.Error()})
		}
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Model: m.Name, Issues: issues}
	}
	return v, nil
}

func checkKind(kind, items schema.Kind, v any) string {
	ok := true
	switch kind {
	case schema.KindAny:
		return ""
	case schema.KindString:
		_, ok = v.(string)
	case schema.KindBoolean:
		_, ok = v.(bool)
	case schema.KindNumber:
		_, ok = number(v)
	case schema.KindInteger:
		if n, isNumber := v.(json.Number); isNumber {
			if _, err := n.Int64(); err == nil {
				break
			}
		}
		f, isNum := number(v)
		ok = isNum && f == math.Trunc(f) && !math.IsInf(f, 0)
	case schema.KindObject:
		_, ok = v.(map[string]any)
	case schema.KindNull:
		ok = v == nil
	case schema.KindArray:
		arr, isArr := v.([]any)
		if !isArr {
			ok = false
			break
		}
		for i, item := range arr {
			if item == nil {
				continue
			}
			if msg := checkKind(items, schema.KindAny, item); msg != "" {
				return fmt.Sprintf("item %d: %s", i, msg)
			}
		}
	default:
		// Kinds outside the JSON-Schema core are not checked here.
		return ""
	}
	if !ok {
		return fmt.Sprintf("input should be a valid %s", kind)
	}
	return ""
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// maxExactFloat is the largest integer float64 holds without rounding.
const maxExactFloat = 1 << 53

// plain replaces the json.Number values of a decoded argument with int64 or
// float64. Integer fields get int64; number fields get float64. Untyped
// values stay float64 unless the integer would not survive the conversion.
func plain(v any, kind, items schema.Kind) any {
	switch t := v.(type) {
	case json.Number:
		return plainNumber(t, kind)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item, items, schema.KindAny)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plain(item, schema.KindAny, schema.KindAny)
		}
		return out
	}
	return v
}

func plainNumber(n json.Number, kind schema.Kind) any {
	i, intErr := n.Int64()
	switch {
	case intErr == nil && kind == schema.KindInteger:
		return i
	case intErr == nil && kind != schema.KindNumber && (i > maxExactFloat || i < -maxExactFloat):
		return i
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return f
}
