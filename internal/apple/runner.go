// Copyright 2025 Joseph Cumines

// Package apple executes automation scripts against native macOS applications
// and decodes their JSON output. Every adapter in this package runs embedded
// JXA (JavaScript for Automation) through osascript and reports failures as a
// typed *Error distinguishing permission-denied and timeout from plain script
// failure. Latency is dominated by the target application: a full Contacts
// dump can take tens of seconds on a large address book.
package apple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// defaultScriptTimeout bounds a single osascript invocation when the caller
// did not set one.
const defaultScriptTimeout = 60 * time.Second

// ScriptRunner executes an automation script and returns its raw stdout.
// Implementations must return a *Error for script failures.
type ScriptRunner interface {
	Run(ctx context.Context, op, script string) ([]byte, error)
}

// OsascriptRunner runs JXA scripts via the osascript binary.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type OsascriptRunner struct {
	// Bin overrides the osascript binary path. Empty means "osascript".
	Bin string

	// Timeout bounds each script run. Zero means defaultScriptTimeout.
	Timeout time.Duration
}

// Run executes script with osascript -l JavaScript and returns stdout.
func (r *OsascriptRunner) Run(ctx context.Context, op, script string) ([]byte, error) {
	bin := r.Bin
	if bin == "" {
		bin = "osascript"
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "-l", "JavaScript", "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyFailure(op, err, stderr.String(), ctx.Err())
	}

	return bytes.TrimSpace(stdout.Bytes()), nil
}

// runJSON executes script and unmarshals its stdout into out.
func runJSON(ctx context.Context, r ScriptRunner, op, script string, out any) error {
	data, err := r.Run(ctx, op, script)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return &Error{Op: op, Detail: "script produced no output", Kind: KindScript}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Op:     op,
			Detail: fmt.Sprintf("script produced invalid JSON: %v", err),
			Err:    err,
			Kind:   KindScript,
		}
	}
	return nil
}

// jsArg JSON-encodes v for safe interpolation into a JXA script literal.
func jsArg(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable for unmarshalable types, which the adapters never
		// pass. Fall back to null so the script fails loudly rather than
		// injecting garbage.
		return "null"
	}
	return string(data)
}
