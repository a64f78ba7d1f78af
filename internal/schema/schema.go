// Package schema describes tool parameters and derives the JSON-Schema-like
// input object ({type, properties, required}) exposed by the REST and MCP
// surfaces.
package schema

import "sort"

// Kind is the JSON type of a tool parameter.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindNull    Kind = "null"

	// KindAny marks an untyped parameter.
	KindAny Kind = ""
)

// Param is the schema description a tool author attaches to a registration,
// one entry per parameter of the callable.
type Param struct {
	Name        string
	Kind        Kind
	Nullable    bool // "Kind or null"
	HasDefault  bool
	Default     any
	Description string
	Items       Kind // element kind for arrays
}

// Property is one entry of Schema.Properties.
type Property struct {
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Schema is the inferred input schema of a tool.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Infer derives the input schema from a parameter list.
//
// Parameters of the null kind are skipped. Nullable parameters take the type
// of their non-null kind. Unrecognized kinds map to "string". A parameter is
// required iff it has no default. Untyped parameters are kept with no type
// constraint so that a required-but-untyped parameter is still enforced.
func Infer(params []Param) Schema {
	s := Schema{
		Type:       "object",
		Properties: make(map[string]Property, len(params)),
		Required:   []string{},
	}
	for _, p := range params {
		if p.Kind == KindNull {
			continue
		}
		prop := Property{Description: p.Description}
		if p.Kind != KindAny {
			prop.Type = string(Normalize(p.Kind))
		}
		if prop.Type == string(KindArray) && p.Items != KindAny {
			prop.Items = &Property{Type: string(Normalize(p.Items))}
		}
		if p.HasDefault && p.Default != nil {
			prop.Default = p.Default
		}
		s.Properties[p.Name] = prop
		if !p.HasDefault {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Normalize maps k onto one of the six JSON value kinds, defaulting to string.
func Normalize(k Kind) Kind {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindArray, KindObject:
		return k
	case "int", "int64", "int32":
		return KindInteger
	case "float", "float64", "float32":
		return KindNumber
	case "bool":
		return KindBoolean
	case "list", "slice":
		return KindArray
	case "dict", "map":
		return KindObject
	default:
		return KindString
	}
}

// Untyped returns the names of parameters declared without a kind.
func Untyped(params []Param) []string {
	var names []string
	for _, p := range params {
		if p.Kind == KindAny {
			names = append(names, p.Name)
		}
	}
	return names
}

// Map renders s as a plain JSON-Schema mapping.
func (s Schema) Map() map[string]any {
	props := make(map[string]any, len(s.Properties))
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		props[name] = s.Properties[name].Map()
	}
	required := make([]any, len(s.Required))
	for i, r := range s.Required {
		required[i] = r
	}
	return map[string]any{
		"type":       s.Type,
		"properties": props,
		"required":   required,
	}
}

// Map renders p as a plain JSON-Schema mapping.
func (p Property) Map() map[string]any {
	m := map[string]any{}
	if p.Type != "" {
		m["type"] = p.Type
	}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if p.Default != nil {
		m["default"] = p.Default
	}
	if p.Items != nil {
		m["items"] = p.Items.Map()
	}
	return m
}
