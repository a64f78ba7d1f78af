package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

// Shell defaults.
const (
	DefaultTail    = 100
	DefaultTimeout = 30
	DefaultShell   = "/bin/bash"
)

// CommandInput is the argument of run_shell_command.
type CommandInput struct {
	Args    []string `json:"args" jsonschema:"description=Command and its arguments such as [ls -la]"`
	Tail    *int     `json:"tail,omitempty" jsonschema:"description=Number of trailing output lines to return; 0 returns all,default=100"`
	BaseDir string   `json:"base_dir,omitempty" jsonschema:"description=Working directory of the command"`
	Timeout *int     `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds,default=30"`
}

// ScriptInput is the argument of shell_run_shell_script.
type ScriptInput struct {
	Script  string `json:"script" jsonschema:"description=Shell script content"`
	Shell   string `json:"shell,omitempty" jsonschema:"description=Interpreter to run the script with,default=/bin/bash"`
	BaseDir string `json:"base_dir,omitempty" jsonschema:"description=Working directory of the script"`
	Timeout *int   `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds,default=30"`
}

// CommandNameInput is the argument of shell_check_command_exists.
type CommandNameInput struct {
	Command string `json:"command" jsonschema:"description=Command name to look up on PATH"`
}

// Shell serves the shell tools. Relative base directories resolve against
// its work directory.
type Shell struct {
	workDir string
	logger  *common.Logger
}

// NewShell creates the shell tools rooted at workDir.
func NewShell(workDir string, logger *common.Logger) *Shell {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Shell{workDir: workDir, logger: logger}
}

// Register adds the shell tools to r.
func (s *Shell) Register(r registry.Registrar) error {
	return registry.RegisterAll(r,
		named(registry.Typed(s.runCommand), "run_shell_command",
			"Run a command (without a shell) and return its output, error and return code."),
		named(registry.Typed(s.runScript), "shell_run_shell_script",
			"Run a multi-line shell script and return its output."),
		named(registry.Typed(s.commandExists), "shell_check_command_exists",
			"Check whether a command exists on PATH."),
	)
}

type execOutcome struct {
	stdout, stderr string
	code           int
	cwd            string
}

func (s *Shell) run(ctx context.Context, baseDir string, timeout int, name string, args ...string) (execOutcome, result.Result, bool) {
	cwd, fail := s.resolveDir(baseDir)
	if fail != nil {
		return execOutcome{}, *fail, false
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		s.logger.Warn().Str("cmd", name).Int("timeout", timeout).Msg("shell command timed out")
		return execOutcome{}, result.Fail("Command timed out after %d seconds", timeout), false
	}

	out := execOutcome{stdout: stdout.String(), stderr: stderr.String(), cwd: cwd}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		out.code = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		s.logger.Warn().Str("cmd", name).Msg("shell command not found")
		return execOutcome{}, result.Fail("Command not found: %s", name), false
	default:
		s.logger.Error().Str("cmd", name).Err(err).Msg("failed to run shell command")
		return execOutcome{}, result.Fail("Failed to run shell command: %v", err), false
	}
	return out, result.Result{}, true
}

func (s *Shell) runCommand(ctx context.Context, in CommandInput) (result.Result, error) {
	if len(in.Args) == 0 {
		return result.Fail("Command args cannot be empty"), nil
	}
	tail := intOr(in.Tail, DefaultTail)
	timeout := intOr(in.Timeout, DefaultTimeout)

	s.logger.Info().Str("cmd", in.Args[0]).Str("cwd", in.BaseDir).Msg("shell command requested")
	out, fail, ok := s.run(ctx, in.BaseDir, timeout, in.Args[0], in.Args[1:]...)
	if !ok {
		return fail, nil
	}

	stdout, truncated := tailLines(out.stdout, tail)
	stderr, _ := tailLines(out.stderr, tail)

	if out.code == 0 {
		s.logger.Info().Str("cmd", in.Args[0]).Msg("shell command succeeded")
	} else {
		s.logger.Warn().Str("cmd", in.Args[0]).Int("return_code", out.code).Msg("shell command failed")
	}

	return result.Partial(out.code == 0, map[string]any{
		"command":           strings.Join(in.Args, " "),
		"return_code":       out.code,
		"stdout":            stdout,
		"stderr":            stderr,
		"working_directory": out.cwd,
		"output_truncated":  truncated,
	}), nil
}

func (s *Shell) runScript(ctx context.Context, in ScriptInput) (result.Result, error) {
	if strings.TrimSpace(in.Script) == "" {
		return result.Fail("Script content cannot be empty"), nil
	}
	shell := in.Shell
	if shell == "" {
		shell = DefaultShell
	}
	timeout := intOr(in.Timeout, DefaultTimeout)

	s.logger.Info().Int("length", len(in.Script)).Str("cwd", in.BaseDir).Msg("shell script requested")
	out, fail, ok := s.run(ctx, in.BaseDir, timeout, shell, "-c", in.Script)
	if !ok {
		return fail, nil
	}

	return result.Partial(out.code == 0, map[string]any{
		"script":            in.Script,
		"shell":             shell,
		"return_code":       out.code,
		"stdout":            out.stdout,
		"stderr":            out.stderr,
		"working_directory": out.cwd,
	}), nil
}

func (s *Shell) commandExists(_ context.Context, in CommandNameInput) (result.Result, error) {
	path, err := exec.LookPath(in.Command)
	data := map[string]any{"command": in.Command, "exists": err == nil, "path": nil}
	if err == nil {
		data["path"] = path
	}
	return result.OK(data), nil
}

// resolveDir returns the directory a command runs in.
func (s *Shell) resolveDir(baseDir string) (string, *result.Result) {
	if baseDir == "" {
		return absDir(s.workDir), nil
	}
	dir := resolvePath(s.workDir, baseDir)
	info, err := os.Stat(dir)
	if err != nil {
		r := result.Fail("Base directory does not exist: %s", baseDir)
		return "", &r
	}
	if !info.IsDir() {
		r := result.Fail("Base directory is not a directory: %s", baseDir)
		return "", &r
	}
	return dir, nil
}

// tailLines keeps the last n lines of s; n <= 0 keeps everything.
func tailLines(s string, n int) (string, bool) {
	if s == "" || n <= 0 {
		return s, false
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s, false
	}
	return strings.Join(lines[len(lines)-n:], "\n"), true
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func absDir(dir string) string {
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// resolvePath joins a relative p onto base.
func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(absDir(base), p)
}
