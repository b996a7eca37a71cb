package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cissync/internal/config"
	"github.com/ppiankov/cissync/internal/history"
	"github.com/ppiankov/cissync/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded sync runs",
	Long: `List past sync runs from the local history database, newest first.

The database path comes from the settings file (history.path) or --db.
Runs are only recorded when history.enabled is set in the settings.`,
	Example: `  cissync history --config config.json
  cissync history --db cissync-history.db --limit 10

  # Outcomes of a single run
  cissync history --db cissync-history.db --run 3

  # Machine-readable formats
  cissync history --config config.json -o json
  cissync history --config config.json -o csv > runs.csv`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("config", "", "Path to settings file (for history.path)")
	historyCmd.Flags().String("db", "", "History database path (overrides history.path)")
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	historyCmd.Flags().Int64("run", 0, "Show per-policy outcomes of one run ID")
	historyCmd.Flags().StringP("output", "o", "", "Output format: table, json, yaml, csv (default: table)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dbPath, _ := cmd.Flags().GetString("db") //nolint:errcheck // flag registered above
	if dbPath == "" {
		cfgPath, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag registered above
		cfg, err := config.LoadPartial(cfgPath)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		dbPath = cfg.History.Path
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close() //nolint:errcheck // read-only usage

	outputFlag, _ := cmd.Flags().GetString("output") //nolint:errcheck // flag registered above
	runID, _ := cmd.Flags().GetInt64("run")          //nolint:errcheck // flag registered above
	if runID != 0 {
		return printOutcomes(cmd, store, runID, outputFlag)
	}

	limit, _ := cmd.Flags().GetInt("limit") //nolint:errcheck // flag registered above
	runs, err := store.List(limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	switch outputFlag {
	case "", "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tAT\tPROCESSED\tCREATED\tSKIPPED\tFAILED\tDURATION\tDRY RUN")
		for i := range runs {
			r := &runs[i]
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%s\t%t\n",
				r.ID, r.At.Format(time.RFC3339), r.Processed, r.Created, r.Skipped, r.Failed,
				time.Duration(r.DurationMS)*time.Millisecond, r.DryRun)
		}
		return w.Flush()
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case "yaml":
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(runs)
	case "csv":
		return report.WriteCSV(cmd.OutOrStdout(), runs)
	default:
		return fmt.Errorf("invalid --output value %q: must be table, json, yaml, or csv", outputFlag)
	}
}

func printOutcomes(cmd *cobra.Command, store *history.Store, runID int64, outputFlag string) error {
	outcomes, err := store.Outcomes(runID)
	if err != nil {
		return fmt.Errorf("loading outcomes: %w", err)
	}

	switch outputFlag {
	case "", "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tACTION\tPOLICY ID\tERROR")
		for i := range outcomes {
			o := &outcomes[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.Name, o.Category, o.Action, o.PolicyID, o.Error)
		}
		return w.Flush()
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	case "yaml":
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(outcomes)
	default:
		return fmt.Errorf("invalid --output value %q for --run: must be table, json, or yaml", outputFlag)
	}
}
