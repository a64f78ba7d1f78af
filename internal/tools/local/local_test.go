package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

type registerer interface {
	Register(registry.Registrar) error
}

func newRegistry(t *testing.T, modules ...registerer) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	for _, m := range modules {
		require.NoError(t, m.Register(reg.Scope("local")))
	}
	return reg
}

func call(t *testing.T, reg *registry.Registry, name string, args map[string]any) result.Result {
	t.Helper()
	r, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)
	out, err := registry.Call(context.Background(), r, args)
	require.NoError(t, err)
	res, ok := out.(result.Result)
	require.True(t, ok, "expected result.Result, got %T", out)
	return res
}

func data(t *testing.T, r result.Result) map[string]any {
	t.Helper()
	require.True(t, r.Success, "expected success, got error %q", r.Error)
	m, ok := r.Data.(map[string]any)
	require.True(t, ok, "expected map data, got %T", r.Data)
	return m
}

