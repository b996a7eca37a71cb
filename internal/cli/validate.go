package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cissync/internal/bundle"
	"github.com/ppiankov/cissync/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <settings-file>",
	Short: "Validate a settings file and its policy bundle",
	Long: `Load and validate a cissync settings file without connecting to Central.

Checks for syntax errors and missing required fields, then loads the
policy bundle the settings point at and verifies every policy parses.
Exits 0 on success, 1 on validation failure.`,
	Example: `  cissync validate config.json
  cissync validate config.yaml && echo "Config OK"

  # Validate a different bundle than the settings name
  cissync validate config.json --policies other_policies.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("policies", "", "Policy bundle path (overrides policies.config_file)")
	validateCmd.Flags().Bool("settings-only", false, "Skip loading the policy bundle")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	cmd.Println("settings OK")

	settingsOnly, _ := cmd.Flags().GetBool("settings-only") //nolint:errcheck // flag registered above
	if settingsOnly {
		return nil
	}

	policiesPath, _ := cmd.Flags().GetString("policies") //nolint:errcheck // flag registered above
	if policiesPath == "" {
		policiesPath = cfg.Policies.ConfigFile
	}
	b, err := bundle.Load(policiesPath)
	if err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	cmd.Printf("bundle OK (%d policies)\n", b.Len())
	return nil
}
