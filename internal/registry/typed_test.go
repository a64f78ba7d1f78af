package registry

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bobmcallan/humcp/internal/schema"
)

type searchArgs struct {
	Query string   `json:"query" jsonschema:"description=Search query"`
	Limit int      `json:"limit,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func searchDocs(_ context.Context, in searchArgs) (map[string]any, error) {
	limit := in.Limit
	if limit == 0 {
		limit = 10
	}
	return map[string]any{"query": in.Query, "limit": limit}, nil
}

func TestParamsOf_DerivesKindsAndRequired(t *testing.T) {
	params := ParamsOf[searchArgs]()
	if len(params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(params))
	}

	byName := map[string]schema.Param{}
	for _, p := range params {
		byName[p.Name] = p
	}

	if p := byName["query"]; p.Kind != schema.KindString || p.HasDefault {
		t.Errorf("query should be a required string, got %+v", p)
	}
	if p := byName["query"]; p.Description != "Search query" {
		t.Errorf("expected description, got %q", p.Description)
	}
	if p := byName["limit"]; p.Kind != schema.KindInteger || !p.HasDefault {
		t.Errorf("limit should be an optional integer, got %+v", p)
	}
	if p := byName["tags"]; p.Kind != schema.KindArray || p.Items != schema.KindString {
		t.Errorf("tags should be an array of strings, got %+v", p)
	}
}

func TestTyped_DecodesArguments(t *testing.T) {
	tool := Typed(searchDocs)
	if tool.Ident != "search_docs" {
		t.Errorf("expected ident search_docs, got %q", tool.Ident)
	}

	out, err := tool.Func(context.Background(), map[string]any{"query": "go"})
	if err != nil {
		t.Fatalf("Func failed: %v", err)
	}
	m := out.(map[string]any)
	if m["query"] != "go" || m["limit"] != 10 {
		t.Errorf("unexpected result %+v", m)
	}
}

func TestTyped_BadArgumentsAreUnprocessable(t *testing.T) {
	tool := Typed(searchDocs)

	_, err := tool.Func(context.Background(), map[string]any{"query": 42})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", httpErr.Status)
	}
}

func TestTyped_RegistersWithDerivedName(t *testing.T) {
	reg := New(nil)
	tool := Typed(searchDocs)
	tool.Category = "search"

	got, err := reg.Register(tool)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if got.Name != "search_search_docs" {
		t.Errorf("expected search_search_docs, got %s", got.Name)
	}
}
