package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wfshell/wfsh/internal/engine"
	"github.com/wfshell/wfsh/internal/history"
)

var (
	runWorkflowFile string
	runConfigFiles  []string
	runNoHistory    bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <engine arguments>",
	Short: "Run targets through the engine once",
	Long: `Run mode is the non-interactive path: load a workflow file from disk
and hand targets plus passthrough flags to the external engine in a
single shot. Everything after -- follows the engine's own CLI grammar.

Example:
  wfsh run -- all --cores 4
  wfsh run --workflow pipeline.smk --configfile prod.yaml -- report.html -n`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runWorkflowFile, "workflow", "w", "Snakefile", "workflow file to load")
	runCmd.Flags().StringSliceVar(&runConfigFiles, "configfile", nil, "config file(s) to merge, in order")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record this run in the history database")
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := NewLogger().WithField("component", "run")

	argline := strings.Join(args, " ")
	opts, err := engine.ParseArgs(argline)
	if err != nil {
		return err
	}

	if _, err := os.Stat(runWorkflowFile); err != nil {
		return fmt.Errorf("workflow file: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewExec(EngineBinary())
	inv := engine.Invocation{
		WorkflowFile: runWorkflowFile,
		ConfigFiles:  runConfigFiles,
		Args:         opts.Raw,
	}
	if n := DefaultCores(); n > 0 && opts.Cores == 0 && opts.Jobs == 0 {
		inv.Args = append(inv.Args, "--cores", strconv.Itoa(n))
	}
	logger.Debug("invoking engine", map[string]interface{}{
		"binary": eng.Binary,
		"argv":   strings.Join(eng.Argv(inv), " "),
	})

	started := time.Now()
	res, err := eng.Run(ctx, inv)
	if err != nil {
		return err
	}

	if !runNoHistory {
		if hist, herr := history.Open(HistoryPath()); herr == nil {
			rec := &history.Run{
				StartedAt: started,
				Duration:  res.Duration,
				Argline:   argline,
				Targets:   opts.Targets,
				ExitCode:  res.ExitCode,
				Success:   res.Success(),
			}
			if rerr := hist.Record(rec); rerr != nil {
				logger.Warn("history update failed", map[string]interface{}{"error": rerr.Error()})
			}
			hist.Close()
		} else {
			logger.Warn("history unavailable", map[string]interface{}{"error": herr.Error()})
		}
	}

	if !res.Success() {
		return fmt.Errorf("engine exited with code %d", res.ExitCode)
	}
	logger.Info("run finished", map[string]interface{}{"duration": res.Duration.String()})
	return nil
}
