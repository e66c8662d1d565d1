package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wfshell/wfsh/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past engine runs",
	Long:  `Lists runs recorded by previous sessions and one-shot invocations, newest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	hist, err := history.Open(HistoryPath())
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer hist.Close()

	runs, err := hist.List(historyLimit)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Started", "Duration", "Targets", "Rules", "Status")
	for _, r := range runs {
		status := "failed"
		if r.Success {
			status = "ok"
		}
		table.Append(
			fmt.Sprintf("%d", r.ID),
			r.StartedAt.Local().Format(time.RFC3339),
			r.Duration.Round(time.Millisecond).String(),
			strings.Join(r.Targets, " "),
			fmt.Sprintf("%d", r.RuleCount),
			status,
		)
	}
	table.Render()
	return nil
}
