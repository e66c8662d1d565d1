package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wfshell/wfsh/internal/engine"
	"github.com/wfshell/wfsh/internal/history"
	"github.com/wfshell/wfsh/internal/metrics"
	"github.com/wfshell/wfsh/internal/session"
)

var (
	shellListen    string
	shellNoHistory bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive workflow session",
	Long: `Shell mode starts an interactive session in which a workflow is built
incrementally. Directives start with %; everything else is rejected with
a hint. Multi-line blocks end with a single "." line.

  %config        merge a JSON or YAML block into the session config
  %rule          include a block of rule definitions
  %rule!         same, replacing rules that share a name (forces re-run)
  %run ARGS      run targets through the engine (engine CLI grammar)
  %rules         list rules defined so far
  %status        show session state and counters
  %save FILE     write the accumulated workflow to FILE
  %help          show this list
  %quit          leave the session

Example:
  wfsh shell
  wfsh> %rule
  ...   rule all:
  ...       input: "out.txt"
  ...   .
  1 rules defined
  wfsh> %run out.txt --cores 2`,
}

func init() {
	shellCmd.RunE = runShell
	rootCmd.AddCommand(shellCmd)

	shellCmd.Flags().StringVar(&shellListen, "listen", "", "serve /metrics and /status on this address (e.g. :9461)")
	shellCmd.Flags().BoolVar(&shellNoHistory, "no-history", false, "do not record runs in the history database")
}

func runShell(cmd *cobra.Command, args []string) error {
	eng := engine.NewExec(EngineBinary())

	met := metrics.New()
	opts := []session.Option{
		session.WithMetrics(met),
		session.WithTempDir(TempDir()),
		session.WithDefaultCores(DefaultCores()),
	}

	var hist *history.Store
	if !shellNoHistory {
		var err error
		hist, err = history.Open(HistoryPath())
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer hist.Close()
		opts = append(opts, session.WithHistory(hist))
	}

	sess := session.New(eng, opts...)

	if shellListen == "" {
		shellListen = viper.GetString("listen")
	}
	if shellListen != "" {
		srv := metrics.NewServer(shellListen, met, func() interface{} {
			return sess.Snapshot()
		})
		if err := srv.Start(); err != nil {
			return fmt.Errorf("listening on %s: %w", shellListen, err)
		}
		defer srv.Close()
		fmt.Printf("Serving /metrics and /status on %s\n", shellListen)
	}

	fmt.Printf("wfsh session (engine: %s). Type %%help for directives, %%quit to leave.\n", EngineBinary())
	return repl(sess, met, hist, os.Stdin, os.Stdout)
}

// repl runs the directive loop. Split from runShell so tests can drive it
// with scripted input. hist may be nil when history is disabled.
func repl(sess *session.Session, met *metrics.Metrics, hist *history.Store, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "wfsh> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "%") {
			fmt.Fprintln(out, "directives start with % (try %help)")
			continue
		}

		directive, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch directive {
		case "%quit", "%exit":
			return nil

		case "%help":
			fmt.Fprint(out, shellCmd.Long, "\n")

		case "%config":
			text := rest
			if text == "" {
				text = readBlock(scanner, out)
			}
			if err := sess.LoadConfig(text); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "config merged (%d top-level keys)\n", len(sess.Snapshot().ConfigKeys))

		case "%rule", "%rule!":
			text := rest
			if text == "" {
				text = readBlock(scanner, out)
			}
			n, err := sess.IncludeRules(text, directive == "%rule!")
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "%d rules defined\n", n)

		case "%run":
			runInSession(sess, rest, out)

		case "%rules":
			printRules(sess, out)

		case "%status":
			printStatus(sess, met, hist, out)

		case "%save":
			if rest == "" {
				io.WriteString(out, "usage: %save FILE\n")
				continue
			}
			if err := os.WriteFile(rest, []byte(sess.WorkflowText()), 0o644); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "workflow written to %s\n", rest)

		default:
			fmt.Fprintf(out, "unknown directive %s (try %%help)\n", directive)
		}
	}
}

// readBlock collects lines until a lone "." or EOF.
func readBlock(scanner *bufio.Scanner, out io.Writer) string {
	var lines []string
	for {
		fmt.Fprint(out, "...   ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n") + "\n"
}

func runInSession(sess *session.Session, argline string, out io.Writer) {
	// Ctrl-C cancels the engine run, not the shell.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := sess.Run(ctx, argline)
	switch {
	case err != nil:
		fmt.Fprintf(out, "error: %v\n", err)
	case report.Success:
		fmt.Fprintf(out, "run succeeded in %s\n", report.Duration.Round(time.Millisecond))
	default:
		fmt.Fprintf(out, "run failed: engine exited with code %d\n", report.ExitCode)
	}
}

func printRules(sess *session.Session, out io.Writer) {
	names := sess.RuleNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "no rules defined")
		return
	}
	table := tablewriter.NewWriter(out)
	table.Header("#", "Rule")
	for i, n := range names {
		table.Append(fmt.Sprintf("%d", i+1), n)
	}
	table.Render()
}

func printStatus(sess *session.Session, met *metrics.Metrics, hist *history.Store, out io.Writer) {
	st := sess.Snapshot()
	fmt.Fprintf(out, "rules: %d  pending forced re-runs: %s  config keys: %s  config loads: %d\n",
		st.RuleCount, orNone(st.PendingRuns), orNone(st.ConfigKeys), st.ConfigLoads)

	if hist != nil {
		printRecentRuns(hist, out)
	}

	if rendered, err := met.Render(); err == nil {
		fmt.Fprint(out, rendered)
	}
}

// printRecentRuns summarizes the run history inline, most recent first.
func printRecentRuns(hist *history.Store, out io.Writer) {
	total, err := hist.Count()
	if err != nil {
		fmt.Fprintf(out, "history unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(out, "recorded runs: %d\n", total)
	if total == 0 {
		return
	}

	runs, err := hist.List(5)
	if err != nil {
		fmt.Fprintf(out, "history unavailable: %v\n", err)
		return
	}
	for _, r := range runs {
		outcome := "ok"
		if !r.Success {
			outcome = fmt.Sprintf("exit %d", r.ExitCode)
		}
		fmt.Fprintf(out, "  %s  %-7s %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), outcome, r.Argline)
	}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
