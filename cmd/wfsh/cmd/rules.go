package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wfshell/wfsh/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules <workflow-file>",
	Short: "List rules defined in a workflow file",
	Long: `Scans a workflow file and lists the rule and checkpoint names it
defines. The scan is textual and best-effort; the engine's parser is
authoritative.`,
	Args: cobra.ExactArgs(1),
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading workflow file: %w", err)
	}
	names := rules.Scan(string(data))

	if IsJSONOutput() {
		type ruleJSON struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
			Line int    `json:"line"`
		}
		out := make([]ruleJSON, 0, len(names))
		for _, n := range names {
			out = append(out, ruleJSON{Name: n.Value, Kind: string(n.Kind), Line: n.Line})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(names) == 0 {
		fmt.Println("No rules found")
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Rule", "Kind", "Line")
	for i, n := range names {
		table.Append(
			fmt.Sprintf("%d", i+1),
			n.Value,
			string(n.Kind),
			fmt.Sprintf("%d", n.Line),
		)
	}
	table.Render()
	fmt.Printf("\nTotal: %d rules\n", len(names))
	return nil
}
