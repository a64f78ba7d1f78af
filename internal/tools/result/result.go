// Package result is the response envelope shared by the built-in tools.
//
// Tools report expected failures (bad input, missing files, non-zero exit
// codes) inside the envelope rather than as Go errors, so callers always
// receive a 200 with {"success": false, "error": "..."}.
package result

import "fmt"

// Result is the body a built-in tool returns.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a successful result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds an unsuccessful result.
func Fail(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Partial returns data with an explicit success flag, for tools (such as the
// shell) that report both an outcome and its details.
func Partial(success bool, data any) Result {
	return Result{Success: success, Data: data}
}
