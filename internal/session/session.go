// Package session holds the state of one interactive workflow-building
// session: the rule blocks included so far, the merged configuration
// mapping, and the names of rules replaced since the last run. It owns
// no execution semantics; running a target materializes the session into
// temporary files and hands them to the external engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wfshell/wfsh/internal/configmerge"
	"github.com/wfshell/wfsh/internal/engine"
	"github.com/wfshell/wfsh/internal/history"
	"github.com/wfshell/wfsh/internal/metrics"
	"github.com/wfshell/wfsh/internal/rules"
)

// ErrNoRules is returned by Run when no rules have been included yet.
var ErrNoRules = errors.New("no rules defined in this session; include rules before running")

// Session is the adapter object behind the interactive commands. It is
// single-user and synchronous; nothing here is safe for concurrent use,
// and nothing needs to be.
type Session struct {
	eng engine.Engine

	blocks   []rules.Block
	config   map[string]interface{}
	replaced []string // rule names replaced since the last engine run

	tempDir      string
	defaultCores int
	configLoads  int

	hist *history.Store
	met  *metrics.Metrics
}

// Option configures a Session.
type Option func(*Session)

// WithHistory records every run in the given store.
func WithHistory(h *history.Store) Option {
	return func(s *Session) { s.hist = h }
}

// WithMetrics counts session activity on the given instrument set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.met = m }
}

// WithTempDir places per-run temporary files under dir instead of the
// system default.
func WithTempDir(dir string) Option {
	return func(s *Session) { s.tempDir = dir }
}

// WithDefaultCores appends --cores n to runs whose argument line carries
// no core or job count of its own. Zero disables the default.
func WithDefaultCores(n int) Option {
	return func(s *Session) { s.defaultCores = n }
}

// New creates an empty session bound to an engine.
func New(eng engine.Engine, opts ...Option) *Session {
	s := &Session{eng: eng}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadConfig parses a JSON or YAML block and deep-merges it into the
// session configuration. The merged mapping reaches the engine as a
// config file on the next run.
func (s *Session) LoadConfig(text string) error {
	cfg, err := configmerge.Parse(text)
	if err != nil {
		return err
	}
	s.config = configmerge.Merge(s.config, cfg)
	s.configLoads++
	if s.met != nil {
		s.met.ConfigLoads.Inc()
	}
	return nil
}

// IncludeRules appends a block of workflow text to the session. With
// replace set, previously included blocks defining the same rule names
// are dropped first and the replaced names are queued for forced re-run
// on the next execution. Returns the total rule count afterwards.
func (s *Session) IncludeRules(text string, replace bool) (int, error) {
	incoming := rules.Split(text)
	if incoming == nil {
		return s.RuleCount(), fmt.Errorf("empty rule block")
	}

	if replace {
		for _, b := range incoming {
			if b.Name.Value == "" {
				continue
			}
			if s.dropBlock(b.Name.Value) {
				s.replaced = append(s.replaced, b.Name.Value)
			}
		}
	}
	s.blocks = append(s.blocks, incoming...)

	if s.met != nil {
		s.met.RulesIncluded.Inc()
		s.met.RuleCount.Set(float64(s.RuleCount()))
	}
	return s.RuleCount(), nil
}

// dropBlock removes the first block named name, reporting whether one
// existed.
func (s *Session) dropBlock(name string) bool {
	for i, b := range s.blocks {
		if b.Name.Value == name {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return true
		}
	}
	return false
}

// Report describes the outcome of one Run.
type Report struct {
	Success  bool
	ExitCode int
	Duration time.Duration
	Targets  []string
}

// Run executes targets through the external engine. The argument line is
// tokenized and validated locally (numeric flags only), then forwarded
// verbatim; the session's rule blocks and merged configuration travel as
// temporary files that are removed before Run returns.
func (s *Session) Run(ctx context.Context, argline string) (Report, error) {
	if s.RuleCount() == 0 {
		return Report{}, ErrNoRules
	}

	opts, err := engine.ParseArgs(argline)
	if err != nil {
		return Report{}, err
	}

	dir, err := os.MkdirTemp(s.tempDir, "wfsh-run-")
	if err != nil {
		return Report{}, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	workflowFile := filepath.Join(dir, "Snakefile")
	if err := os.WriteFile(workflowFile, []byte(s.WorkflowText()), 0o644); err != nil {
		return Report{}, fmt.Errorf("writing workflow file: %w", err)
	}

	inv := engine.Invocation{
		WorkflowFile: workflowFile,
		ForcedRules:  s.replaced,
		Args:         opts.Raw,
	}
	// A user-supplied core or job count always wins over the configured
	// default.
	if s.defaultCores > 0 && opts.Cores == 0 && opts.Jobs == 0 {
		inv.Args = append(inv.Args, "--cores", strconv.Itoa(s.defaultCores))
	}
	if len(s.config) > 0 {
		data, err := configmerge.WriteYAML(s.config)
		if err != nil {
			return Report{}, err
		}
		configFile := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(configFile, data, 0o644); err != nil {
			return Report{}, fmt.Errorf("writing config file: %w", err)
		}
		inv.ConfigFiles = []string{configFile}
	}

	started := time.Now()
	res, err := s.eng.Run(ctx, inv)
	if err != nil {
		// The engine never started; keep the forced-re-run list for the
		// next attempt.
		return Report{}, err
	}
	s.replaced = nil

	report := Report{
		Success:  res.Success(),
		ExitCode: res.ExitCode,
		Duration: res.Duration,
		Targets:  opts.Targets,
	}
	if s.met != nil {
		s.met.ObserveRun(report.Success)
	}
	if s.hist != nil {
		rec := &history.Run{
			StartedAt: started,
			Duration:  res.Duration,
			Argline:   argline,
			Targets:   opts.Targets,
			RuleCount: s.RuleCount(),
			ExitCode:  res.ExitCode,
			Success:   report.Success,
		}
		if err := s.hist.Record(rec); err != nil {
			return report, fmt.Errorf("run finished but history update failed: %w", err)
		}
	}
	return report, nil
}

// RuleCount returns the number of rules currently defined.
func (s *Session) RuleCount() int {
	return len(rules.Names(s.blocks))
}

// RuleNames returns the defined rule names in inclusion order.
func (s *Session) RuleNames() []string {
	return rules.Names(s.blocks)
}

// Pending returns the rule names queued for forced re-run.
func (s *Session) Pending() []string {
	return append([]string(nil), s.replaced...)
}

// WorkflowText materializes the session's blocks as one workflow file.
func (s *Session) WorkflowText() string {
	var b strings.Builder
	for _, blk := range s.blocks {
		b.WriteString(strings.TrimRight(blk.Text, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Status is the snapshot shown by the status directive and the HTTP
// status endpoint.
type Status struct {
	RuleCount   int      `json:"rule_count"`
	Rules       []string `json:"rules,omitempty"`
	PendingRuns []string `json:"pending_forced_reruns,omitempty"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
	ConfigLoads int      `json:"config_loads"`
}

// Snapshot returns the current session status.
func (s *Session) Snapshot() Status {
	st := Status{
		RuleCount:   s.RuleCount(),
		Rules:       s.RuleNames(),
		PendingRuns: s.Pending(),
		ConfigLoads: s.configLoads,
	}
	for k := range s.config {
		st.ConfigKeys = append(st.ConfigKeys, k)
	}
	sort.Strings(st.ConfigKeys)
	return st
}
