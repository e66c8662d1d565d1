package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wfshell/wfsh/internal/engine"
	"github.com/wfshell/wfsh/internal/history"
	"github.com/wfshell/wfsh/internal/metrics"
	"github.com/wfshell/wfsh/internal/session"
)

type scriptEngine struct {
	invocations int
	exitCode    int
}

func (e *scriptEngine) Run(_ context.Context, _ engine.Invocation) (engine.Result, error) {
	e.invocations++
	return engine.Result{ExitCode: e.exitCode}, nil
}

func runScript(t *testing.T, eng engine.Engine, script string) string {
	t.Helper()
	met := metrics.New()
	sess := session.New(eng, session.WithMetrics(met))
	var out bytes.Buffer
	if err := repl(sess, met, nil, strings.NewReader(script), &out); err != nil {
		t.Fatalf("repl() error = %v", err)
	}
	return out.String()
}

func TestReplBuildAndRun(t *testing.T) {
	eng := &scriptEngine{}
	script := "%rule\n" +
		"rule all:\n" +
		"    shell: \"true\"\n" +
		".\n" +
		"%rules\n" +
		"%run all --cores 2\n" +
		"%quit\n"

	out := runScript(t, eng, script)

	if !strings.Contains(out, "1 rules defined") {
		t.Errorf("missing rule count report:\n%s", out)
	}
	if !strings.Contains(out, "all") {
		t.Errorf("%%rules should list the rule:\n%s", out)
	}
	if !strings.Contains(out, "run succeeded") {
		t.Errorf("missing run report:\n%s", out)
	}
	if eng.invocations != 1 {
		t.Errorf("engine invoked %d times, want 1", eng.invocations)
	}
}

func TestReplRunBeforeRules(t *testing.T) {
	eng := &scriptEngine{}
	out := runScript(t, eng, "%run all\n%quit\n")

	if !strings.Contains(out, "no rules defined") {
		t.Errorf("missing no-rules error:\n%s", out)
	}
	if eng.invocations != 0 {
		t.Error("engine should not run without rules")
	}
}

func TestReplBadNumericArgument(t *testing.T) {
	eng := &scriptEngine{}
	script := "%rule rule all:\n" + // inline single-line rule header only
		"%run all --cores banana\n" +
		"%quit\n"
	out := runScript(t, eng, script)

	if !strings.Contains(out, "invalid value for --cores") {
		t.Errorf("missing numeric validation message:\n%s", out)
	}
	if eng.invocations != 0 {
		t.Error("engine should not run with invalid arguments")
	}
}

func TestReplConfigAndStatus(t *testing.T) {
	out := runScript(t, &scriptEngine{},
		"%config {\"threads\": 4}\n%status\n%quit\n")

	if !strings.Contains(out, "config merged (1 top-level keys)") {
		t.Errorf("missing config report:\n%s", out)
	}
	if !strings.Contains(out, "config loads: 1") {
		t.Errorf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "wfsh_config_loads_total 1") {
		t.Errorf("status should include rendered metrics:\n%s", out)
	}
}

func TestReplStatusShowsRecordedRuns(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()

	eng := &scriptEngine{}
	met := metrics.New()
	sess := session.New(eng, session.WithMetrics(met), session.WithHistory(hist))

	script := "%rule rule all:\n" +
		"%run all --cores 2\n" +
		"%status\n" +
		"%quit\n"
	var out bytes.Buffer
	if err := repl(sess, met, hist, strings.NewReader(script), &out); err != nil {
		t.Fatalf("repl() error = %v", err)
	}

	if !strings.Contains(out.String(), "recorded runs: 1") {
		t.Errorf("%%status should report the history count:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "all --cores 2") {
		t.Errorf("%%status should list the recorded argument line:\n%s", out.String())
	}
}

func TestReplRejectsBareText(t *testing.T) {
	out := runScript(t, &scriptEngine{}, "hello\n%nope\n%quit\n")

	if !strings.Contains(out, "directives start with %") {
		t.Errorf("missing hint for bare text:\n%s", out)
	}
	if !strings.Contains(out, "unknown directive %nope") {
		t.Errorf("missing unknown-directive message:\n%s", out)
	}
}

func TestReplEngineFailure(t *testing.T) {
	eng := &scriptEngine{exitCode: 1}
	script := "%rule rule all:\n%run all\n%quit\n"
	out := runScript(t, eng, script)

	if !strings.Contains(out, "engine exited with code 1") {
		t.Errorf("missing failure report:\n%s", out)
	}
}
