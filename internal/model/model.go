// Package model turns a tool's JSON-Schema into a validated request-body
// model.
//
// A Model is a generic structured value: an ordered list of named fields,
// each with a declared kind and a required flag, checked by one validator.
// Parsed values remember whether a field was omitted, sent as null, or set,
// so that omitted optional fields can be left out of the call arguments and
// the tool's own defaults apply.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bobmcallan/humcp/internal/schema"
)

// ValueField is the single field of a model built from a non-object schema.
const ValueField = "value"

// ErrInvalidSchema is returned by Build when the schema cannot be compiled.
var ErrInvalidSchema = errors.New("invalid input schema")

// Field is one named field of a model.
type Field struct {
	Name        string
	Kind        schema.Kind
	Items       schema.Kind
	Required    bool
	Description string
	Default     any
}

// Model is the validated request-body type of one tool.
type Model struct {
	Name   string
	Fields []Field

	doc       map[string]any
	wrapped   bool
	validator *jsonschema.Schema
}

// Build creates a model named typeName from a JSON-Schema object.
//
// A schema whose type is not "object" yields a model with a single required
// field named "value" that accepts any JSON value. Schemas carrying
// constraints beyond type and required (enum, minimum, pattern and so on)
// are compiled and enforced on parse as well.
func Build(s map[string]any, typeName string) (*Model, error) {
	m := &Model{Name: typeName}

	if t, _ := s["type"].(string); t != "object" {
		m.Fields = []Field{{Name: ValueField, Required: true}}
		m.wrapped = true
		return m, nil
	}

	required := make(map[string]bool)
	for _, name := range stringList(s["required"]) {
		required[name] = true
	}

	props, _ := s["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		f := Field{Name: name, Required: required[name]}
		if prop != nil {
			f.Kind = kindOf(prop["type"])
			f.Description, _ = prop["description"].(string)
			f.Default = prop["default"]
			if items, ok := prop["items"].(map[string]any); ok {
				f.Items = kindOf(items["type"])
			}
		}
		m.Fields = append(m.Fields, f)
	}

	m.doc = s
	if hasConstraints(s) {
		v, err := compile(s)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidSchema, typeName, err)
		}
		m.validator = v
	}
	return m, nil
}

// Wrapped reports whether the model was built from a non-object schema.
func (m *Model) Wrapped() bool {
	return m.wrapped
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// JSONSchema returns the documentation form of the model: an object schema
// with one property per field, carrying descriptions.
func (m *Model) JSONSchema() map[string]any {
	props := make(map[string]any, len(m.Fields))
	required := []any{}
	for _, f := range m.Fields {
		p := map[string]any{}
		if src, ok := m.sourceProperty(f.Name); ok {
			for k, v := range src {
				p[k] = v
			}
		} else if f.Kind != schema.KindAny {
			p["type"] = string(f.Kind)
		}
		if f.Description != "" {
			p["description"] = f.Description
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"title":      m.Name,
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func (m *Model) sourceProperty(name string) (map[string]any, bool) {
	props, _ := m.doc["properties"].(map[string]any)
	p, ok := props[name].(map[string]any)
	return p, ok
}

// TypeName derives a model type name from a tool name: "_", "-" and "."
// separate words, each word is capitalized and the words are concatenated.
// A result not starting with a letter is prefixed with "Model"; an empty
// result is "Model".
func TypeName(toolName string) string {
	replacer := strings.NewReplacer("_", " ", "-", " ", ".", " ")
	var b strings.Builder
	for _, word := range strings.Fields(replacer.Replace(toolName)) {
		b.WriteString(capitalize(word))
	}
	name := b.String()
	if name == "" {
		return "Model"
	}
	if r := []rune(name)[0]; !unicode.IsLetter(r) {
		return "Model" + name
	}
	return name
}

// InputName is the name of a tool's request-body model.
func InputName(toolName string) string {
	return TypeName(toolName) + "Input"
}

func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func kindOf(v any) schema.Kind {
	switch t := v.(type) {
	case string:
		return schema.Kind(t)
	case []any:
		// ["integer", "null"] and similar: the first non-null member.
		for _, item := range t {
			if s, ok := item.(string); ok && s != string(schema.KindNull) {
				return schema.Kind(s)
			}
		}
	}
	return schema.KindAny
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// plainKeys are the schema keywords the field validator enforces itself.
var plainKeys = map[string]bool{
	"type":        true,
	"properties":  true,
	"required":    true,
	"description": true,
	"default":     true,
	"title":       true,
	"items":       true,
	"$schema":     true,
}

func hasConstraints(s map[string]any) bool {
	for k, v := range s {
		if !plainKeys[k] {
			return true
		}
		switch k {
		case "properties":
			props, _ := v.(map[string]any)
			for _, p := range props {
				if pm, ok := p.(map[string]any); ok && hasConstraints(pm) {
					return true
				}
			}
		case "items":
			if im, ok := v.(map[string]any); ok && hasConstraints(im) {
				return true
			}
		}
	}
	return false
}

func compile(s map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile("schema.json")
}
