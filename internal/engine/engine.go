// Package engine invokes the external workflow engine. Everything hard
// lives on the other side of the exec boundary: dependency resolution,
// rule matching, scheduling, staleness checks, shell execution, and
// locking all belong to the engine. This package only assembles argument
// vectors and reports exit status.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultBinary is the engine executable used when none is configured.
const DefaultBinary = "snakemake"

// Invocation describes one engine run: the materialized workflow file,
// config files to merge, rules to force, and the user's verbatim
// passthrough arguments.
type Invocation struct {
	WorkflowFile string
	ConfigFiles  []string
	ForcedRules  []string
	Args         []string
}

// Result reports how an invocation finished.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Success reports whether the engine exited cleanly.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Engine runs workflow invocations. The session depends on this interface
// so tests can substitute a recording fake.
type Engine interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecEngine runs the engine as a child process. The child inherits our
// stdout/stderr so the engine's own progress output and error messages
// reach the user unmodified.
type ExecEngine struct {
	Binary string
	Dir    string // working directory; empty means inherit
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns an ExecEngine for the given binary, defaulting to
// DefaultBinary when empty.
func NewExec(binary string) *ExecEngine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &ExecEngine{
		Binary: binary,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Argv assembles the full argument vector for an invocation. Exposed so
// callers can show the exact command line being run.
//
// The forcerun block goes last: the engine's --forcerun takes a variable
// number of rule names, so emitting it before the user's tokens would
// swallow their positional targets into the forcerun list.
func (e *ExecEngine) Argv(inv Invocation) []string {
	var argv []string
	if inv.WorkflowFile != "" {
		argv = append(argv, "--snakefile", inv.WorkflowFile)
	}
	for _, f := range inv.ConfigFiles {
		argv = append(argv, "--configfile", f)
	}
	argv = append(argv, inv.Args...)
	if len(inv.ForcedRules) > 0 {
		argv = append(argv, "--forcerun")
		argv = append(argv, inv.ForcedRules...)
	}
	return argv
}

// Run execs the engine and waits for it. A non-zero exit from the engine
// is not an error here; it is a Result the caller reports. Errors mean we
// could not run the engine at all (missing binary, bad workdir).
func (e *ExecEngine) Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, e.Binary, e.Argv(inv)...)
	cmd.Dir = e.Dir
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", e.Binary, err)
	}
	return res, nil
}
