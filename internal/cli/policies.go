package cli

import (
	"fmt"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/cissync/internal/bundle"
	"github.com/ppiankov/cissync/internal/central"
	"github.com/ppiankov/cissync/internal/config"
	"github.com/ppiankov/cissync/internal/monitor"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Inspect the policy bundle or the policies stored in Central",
	Long: `List the policies in the local bundle, browse them interactively, or
list what is already stored in Central.

The default is a table of the local bundle. --remote lists Central's
stored policies instead (requires a settings file). --browse opens an
interactive browser over the local bundle.`,
	Example: `  # List the local bundle
  cissync policies --policies cis_policies.json

  # Browse interactively
  cissync policies --browse

  # List what Central already has
  cissync policies --remote --config config.json`,
	RunE: runPolicies,
}

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.Flags().String("policies", "cis_policies.json", "Policy bundle path")
	policiesCmd.Flags().Bool("browse", false, "Browse the bundle interactively")
	policiesCmd.Flags().Bool("remote", false, "List policies stored in Central instead of the local bundle")
	policiesCmd.Flags().String("config", "config.json", "Path to settings file (for --remote)")
}

func runPolicies(cmd *cobra.Command, _ []string) error {
	remote, _ := cmd.Flags().GetBool("remote") //nolint:errcheck // flag registered above
	if remote {
		return listRemotePolicies(cmd)
	}

	policiesPath, _ := cmd.Flags().GetString("policies") //nolint:errcheck // flag registered above
	b, err := bundle.Load(policiesPath)
	if err != nil {
		return fmt.Errorf("loading policy bundle: %w", err)
	}

	browse, _ := cmd.Flags().GetBool("browse") //nolint:errcheck // flag registered above
	if browse {
		p := tea.NewProgram(monitor.NewModel(b, policiesPath), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running policy browser: %w", err)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tSEVERITY\tNAME")
	for _, p := range b.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Category, p.Severity, p.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d policies\n", b.Len())
	return nil
}

func listRemotePolicies(cmd *cobra.Command) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	clientOpts := []central.Option{
		central.WithTLSVerify(!cfg.Central.InsecureSkipTLSVerify),
	}
	if cfg.Central.SOCKS5Proxy != "" {
		clientOpts = append(clientOpts, central.WithSOCKS5(cfg.Central.SOCKS5Proxy))
	}
	client, err := central.New(cfg.Central.CentralURL, cfg.Central.APIToken, clientOpts...)
	if err != nil {
		return fmt.Errorf("creating Central client: %w", err)
	}

	ctx := cmd.Context()
	summaries, err := client.ListPolicies(ctx)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDISABLED")
	for i := range summaries {
		s := &summaries[i]
		fmt.Fprintf(w, "%s\t%s\t%t\n", s.ID, s.Name, s.Disabled)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d policies in Central\n", len(summaries))
	return nil
}
