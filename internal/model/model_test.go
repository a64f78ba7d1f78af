package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
			"limit": map[string]any{"type": "integer"},
			"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"query"},
	}
}

func TestBuild_FieldsSortedWithRequiredFlags(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	var names []string
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"limit", "query", "tags"}, names)

	q, ok := m.Field("query")
	require.True(t, ok)
	assert.True(t, q.Required)
	assert.Equal(t, "Search query", q.Description)

	l, _ := m.Field("limit")
	assert.False(t, l.Required)
	assert.False(t, m.Wrapped())
}

func TestBuild_NonObjectSchemaWraps(t *testing.T) {
	for _, s := range []map[string]any{
		{"type": "string"},
		{},
		nil,
	} {
		m, err := Build(s, "Echo")
		require.NoError(t, err)
		require.True(t, m.Wrapped())
		require.Len(t, m.Fields, 1)
		assert.Equal(t, ValueField, m.Fields[0].Name)
		assert.True(t, m.Fields[0].Required)

		v, err := m.Parse([]byte(`{"value": [1, "two"]}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"value": []any{1.0, "two"}}, v.Dump(true))
	}
}

func TestParse_OmittedOptionalIsExcludedFromDump(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	v, err := m.Parse([]byte(`{"query": "go"}`))
	require.NoError(t, err)

	got := v.Dump(true)
	if diff := cmp.Diff(map[string]any{"query": "go"}, got); diff != "" {
		t.Errorf("Dump(true) mismatch (-want +got):\n%s", diff)
	}
	_, hasLimit := got["limit"]
	assert.False(t, hasLimit)

	_, state := v.Get("limit")
	assert.Equal(t, Absent, state)

	all := v.Dump(false)
	assert.Contains(t, all, "limit")
	assert.Nil(t, all["limit"])
}

func TestParse_ExplicitNullIsDistinctFromAbsent(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	v, err := m.Parse([]byte(`{"query": "go", "limit": null}`))
	require.NoError(t, err)

	_, state := v.Get("limit")
	assert.Equal(t, Null, state)
	got := v.Dump(true)
	assert.Contains(t, got, "limit")
	assert.Nil(t, got["limit"])
}

func TestParse_RequiredFieldMissingOrNull(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	for _, body := range []string{`{}`, `{"query": null}`, ``} {
		_, err := m.Parse([]byte(body))
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "body %q", body)
		require.Len(t, verr.Issues, 1)
		assert.Equal(t, "query", verr.Issues[0].Field)
	}
}

func TestParse_KindChecks(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	_, err = m.Parse([]byte(`{"query": "go", "limit": 10}`))
	assert.NoError(t, err)

	_, err = m.Parse([]byte(`{"query": "go", "limit": 1.5}`))
	assert.Error(t, err)

	_, err = m.Parse([]byte(`{"query": 7}`))
	assert.Error(t, err)

	_, err = m.Parse([]byte(`{"query": "go", "tags": ["a", 2]}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "tags", verr.Issues[0].Field)
}

func TestParse_CollectsAllIssues(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	_, err = m.Parse([]byte(`{"limit": "ten"}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Issues, 2)
	assert.Contains(t, verr.Error(), "SearchInput")
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	v, err := m.Parse([]byte(`{"query": "go", "verbose": true}`))
	require.NoError(t, err)
	assert.NotContains(t, v.Dump(true), "verbose")
}

func TestParse_MalformedAndNonObject(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	_, err = m.Parse([]byte(`{"query":`))
	assert.ErrorIs(t, err, ErrMalformedBody)

	_, err = m.Parse([]byte(`[1,2]`))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestParse_TrailingDataIsMalformed(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	_, err = m.Parse([]byte(`{"query": "go"} {"query": "again"}`))
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestParse_LargeIntegersKeepPrecision(t *testing.T) {
	m, err := Build(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"n":   map[string]any{"type": "integer"},
			"x":   map[string]any{"type": "number"},
			"ids": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			"raw": map[string]any{},
			"obj": map[string]any{"type": "object"},
		},
	}, "BigInput")
	require.NoError(t, err)

	v, err := m.Parse([]byte(`{
		"n": 9007199254740993,
		"x": 2,
		"ids": [9007199254740993, 1],
		"raw": 9007199254740993,
		"obj": {"small": 3, "big": -9007199254740993}
	}`))
	require.NoError(t, err)

	want := map[string]any{
		"n":   int64(9007199254740993),
		"x":   2.0,
		"ids": []any{int64(9007199254740993), int64(1)},
		"raw": int64(9007199254740993),
		"obj": map[string]any{"small": 3.0, "big": int64(-9007199254740993)},
	}
	if diff := cmp.Diff(want, v.Dump(true)); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_IntegerKindAcceptsExponentForm(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	v, err := m.Parse([]byte(`{"query": "go", "limit": 1e2}`))
	require.NoError(t, err)
	got, _ := v.Get("limit")
	assert.Equal(t, 100.0, got)
}

func TestParse_EnforcesExtraConstraints(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"unit":  map[string]any{"type": "string", "enum": []any{"c", "f"}},
			"count": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []any{"unit"},
	}
	m, err := Build(s, "ConvertInput")
	require.NoError(t, err)

	_, err = m.Parse([]byte(`{"unit": "c", "count": 3}`))
	assert.NoError(t, err)

	_, err = m.Parse([]byte(`{"unit": "k"}`))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = m.Parse([]byte(`{"unit": "f", "count": 0}`))
	assert.True(t, errors.As(err, &verr))
}

func TestBuild_InvalidConstraintSchema(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "pattern": "(["},
		},
	}
	_, err := Build(s, "Broken")
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestJSONSchema_KeepsDescriptions(t *testing.T) {
	m, err := Build(searchSchema(), "SearchInput")
	require.NoError(t, err)

	doc := m.JSONSchema()
	assert.Equal(t, "SearchInput", doc["title"])
	props := doc["properties"].(map[string]any)
	query := props["query"].(map[string]any)
	assert.Equal(t, "Search query", query["description"])
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, []any{"query"}, doc["required"])
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"calculator_add", "CalculatorAdd"},
		{"google-sheets.read", "GoogleSheetsRead"},
		{"HTTP_get", "HttpGet"},
		{"3d_render", "Model3dRender"},
		{"", "Model"},
		{"___", "Model"},
	}
	for _, tt := range tests {
		if got := TypeName(tt.in); got != tt.want {
			t.Errorf("TypeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInputName(t *testing.T) {
	assert.Equal(t, "CalcAddInput", InputName("calc_add"))
	assert.Equal(t, "ModelInput", InputName(""))
}
