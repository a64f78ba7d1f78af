package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/bobmcallan/humcp/internal/schema"
)

// Typed builds a Tool from a function taking a typed argument struct.
//
// Parameters are derived from T's exported fields: the json tag names the
// parameter, a field with `omitempty` is optional, and the description comes
// from the `jsonschema:"description=..."` tag. The returned Tool wraps fn so
// that incoming argument maps are decoded into T. Name, Category and
// Description are left for the caller to fill in.
func Typed[T any, R any](fn func(context.Context, T) (R, error)) Tool {
	return Tool{
		Ident:  FuncIdent(fn),
		Params: ParamsOf[T](),
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			var in T
			if err := decodeArgs(args, &in); err != nil {
				return nil, &HTTPError{Status: http.StatusUnprocessableEntity, Message: err.Error()}
			}
			return fn(ctx, in)
		},
	}
}

// ParamsOf reflects the parameter list of argument struct T.
func ParamsOf[T any]() []schema.Param {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
	}
	s := r.Reflect(new(T))
	if s == nil || s.Properties == nil {
		return nil
	}

	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	var params []schema.Param
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		kind, nullable := kindOf(prop)
		p := schema.Param{
			Name:        pair.Key,
			Kind:        kind,
			Nullable:    nullable,
			HasDefault:  !required[pair.Key],
			Default:     prop.Default,
			Description: prop.Description,
		}
		if kind == schema.KindArray && prop.Items != nil {
			p.Items, _ = kindOf(prop.Items)
		}
		params = append(params, p)
	}
	return params
}

// kindOf maps a reflected property onto a Kind, unwrapping "T or null".
func kindOf(s *jsonschema.Schema) (schema.Kind, bool) {
	if s.Type != "" {
		return schema.Kind(s.Type), false
	}
	var kind schema.Kind
	nullable := false
	for _, alt := range s.AnyOf {
		if alt.Type == string(schema.KindNull) {
			nullable = true
			continue
		}
		if kind == schema.KindAny {
			kind = schema.Kind(alt.Type)
		}
	}
	return kind, nullable
}

func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
