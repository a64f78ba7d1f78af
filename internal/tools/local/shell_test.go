package local

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell tools are exercised on unix only")
	}
}

func TestShell_RunCommand(t *testing.T) {
	skipWithoutSh(t)
	dir := t.TempDir()
	reg := newRegistry(t, NewShell(dir, nil))

	d := data(t, call(t, reg, "run_shell_command", map[string]any{"args": []any{"echo", "hello"}}))
	assert.Equal(t, "hello\n", d["stdout"])
	assert.Equal(t, 0, d["return_code"])
	assert.Equal(t, "echo hello", d["command"])
	assert.Equal(t, dir, d["working_directory"])
}

func TestShell_RunCommandNonZeroExit(t *testing.T) {
	skipWithoutSh(t)
	reg := newRegistry(t, NewShell(t.TempDir(), nil))

	r := call(t, reg, "run_shell_command", map[string]any{"args": []any{"sh", "-c", "echo oops >&2; exit 3"}})
	assert.False(t, r.Success)
	d := r.Data.(map[string]any)
	assert.Equal(t, 3, d["return_code"])
	assert.Equal(t, "oops\n", d["stderr"])
}

func TestShell_RunCommandTail(t *testing.T) {
	skipWithoutSh(t)
	reg := newRegistry(t, NewShell(t.TempDir(), nil))

	d := data(t, call(t, reg, "run_shell_command", map[string]any{
		"args": []any{"sh", "-c", "printf 'a\\nb\\nc\\nd'"},
		"tail": 2.0,
	}))
	assert.Equal(t, "c\nd", d["stdout"])
	assert.Equal(t, true, d["output_truncated"])
}

func TestShell_RunCommandTimeout(t *testing.T) {
	skipWithoutSh(t)
	reg := newRegistry(t, NewShell(t.TempDir(), nil))

	r := call(t, reg, "run_shell_command", map[string]any{"args": []any{"sleep", "5"}, "timeout": 1.0})
	assert.False(t, r.Success)
	assert.Equal(t, "Command timed out after 1 seconds", r.Error)
}

func TestShell_RunCommandErrors(t *testing.T) {
	skipWithoutSh(t)
	dir := t.TempDir()
	reg := newRegistry(t, NewShell(dir, nil))

	r := call(t, reg, "run_shell_command", map[string]any{"args": []any{}})
	assert.Equal(t, "Command args cannot be empty", r.Error)

	r = call(t, reg, "run_shell_command", map[string]any{"args": []any{"definitely-not-a-command-humcp"}})
	assert.Equal(t, "Command not found: definitely-not-a-command-humcp", r.Error)

	r = call(t, reg, "run_shell_command", map[string]any{"args": []any{"ls"}, "base_dir": "missing"})
	assert.Equal(t, "Base directory does not exist: missing", r.Error)

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	r = call(t, reg, "run_shell_command", map[string]any{"args": []any{"ls"}, "base_dir": "f.txt"})
	assert.Equal(t, "Base directory is not a directory: f.txt", r.Error)
}

func TestShell_RunScript(t *testing.T) {
	skipWithoutSh(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	reg := newRegistry(t, NewShell(dir, nil))

	d := data(t, call(t, reg, "shell_run_shell_script", map[string]any{
		"script":   "x=41\necho $((x+1))\npwd",
		"shell":    "/bin/sh",
		"base_dir": "sub",
	}))
	lines := strings.Split(strings.TrimSpace(d["stdout"].(string)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "42", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "sub"))

	assert.False(t, call(t, reg, "shell_run_shell_script", map[string]any{"script": "  "}).Success)
}

func TestShell_CheckCommandExists(t *testing.T) {
	skipWithoutSh(t)
	reg := newRegistry(t, NewShell(t.TempDir(), nil))

	d := data(t, call(t, reg, "shell_check_command_exists", map[string]any{"command": "sh"}))
	assert.Equal(t, true, d["exists"])
	assert.NotNil(t, d["path"])

	d = data(t, call(t, reg, "shell_check_command_exists", map[string]any{"command": "definitely-not-a-command-humcp"}))
	assert.Equal(t, false, d["exists"])
	assert.Nil(t, d["path"])
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		in        string
		n         int
		want      string
		truncated bool
	}{
		{"a\nb\nc", 2, "b\nc", true},
		{"a\nb", 5, "a\nb", false},
		{"a\nb\nc", 0, "a\nb\nc", false},
		{"", 3, "", false},
	}
	for _, tt := range tests {
		got, truncated := tailLines(tt.in, tt.n)
		if got != tt.want || truncated != tt.truncated {
			t.Errorf("tailLines(%q, %d) = %q, %v; want %q, %v", tt.in, tt.n, got, truncated, tt.want, tt.truncated)
		}
	}
}
