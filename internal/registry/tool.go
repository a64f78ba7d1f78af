package registry

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"unicode"

	"github.com/bobmcallan/humcp/internal/schema"
)

// Uncategorized is the category of tools registered with no category and no
// module scope.
const Uncategorized = "uncategorized"

// Func is a tool callable. Arguments arrive as a JSON object; the result
// must be JSON-serializable.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Tool is a registration request.
type Tool struct {
	// Name is the unique tool name. Empty means "derive it".
	Name string

	// Category groups tools for routing and filtering. Empty means "use
	// the module scope, else uncategorized".
	Category string

	// Ident is the function's own identifier, used when deriving the name.
	// Empty means "derive it from Func".
	Ident string

	// Description is the tool documentation shown in listings.
	Description string

	// Params describes the callable's parameters.
	Params []schema.Param

	// InputSchema is an externally supplied JSON-Schema. When set it takes
	// precedence over the schema inferred from Params.
	InputSchema map[string]any

	Func Func
}

// Registration is an immutable record binding a tool name and category to
// its callable.
type Registration struct {
	Name        string
	Category    string
	Description string
	Params      []schema.Param
	InputSchema map[string]any
	Func        Func
}

// Schema returns the tool's input schema: the external schema when one was
// supplied, otherwise the schema inferred from Params.
func (r Registration) Schema() map[string]any {
	if r.InputSchema != nil {
		return r.InputSchema
	}
	return schema.Infer(r.Params).Map()
}

// Endpoint returns the REST path of the tool's execute endpoint.
func (r Registration) Endpoint() string {
	return "/tools/" + r.Name
}

// resolveName applies the naming rules: explicit name, then
// category + "_" + ident when only a category was given, then ident.
func resolveName(t Tool) string {
	if t.Name != "" {
		return t.Name
	}
	ident := t.Ident
	if ident == "" {
		ident = FuncIdent(t.Func)
	}
	if ident == "" {
		return ""
	}
	if t.Category != "" {
		return t.Category + "_" + ident
	}
	return ident
}

// resolveCategory applies the category rules: explicit category, then the
// module scope, then Uncategorized.
func resolveCategory(explicit, scope string) string {
	if explicit != "" {
		return explicit
	}
	if scope != "" {
		return scope
	}
	return Uncategorized
}

// FuncIdent returns the snake_case identifier of a named Go function, or ""
// for closures, method values it cannot name, and nil.
func FuncIdent(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if isClosureName(name) {
		return ""
	}
	return SnakeCase(name)
}

// isClosureName reports names like "func1" the runtime gives anonymous functions.
func isClosureName(name string) bool {
	rest, ok := strings.CutPrefix(name, "func")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// SnakeCase converts a Go identifier such as "SquareRoot" to "square_root".
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
