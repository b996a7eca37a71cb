package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ppiankov/cissync/internal/bundle"
	"github.com/ppiankov/cissync/internal/central"
	"github.com/ppiankov/cissync/internal/config"
	"github.com/ppiankov/cissync/internal/discovery"
	"github.com/ppiankov/cissync/internal/history"
	"github.com/ppiankov/cissync/internal/metrics"
	"github.com/ppiankov/cissync/internal/monitor"
	"github.com/ppiankov/cissync/internal/notify"
	"github.com/ppiankov/cissync/internal/syncer"
	"github.com/ppiankov/cissync/internal/telemetry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create missing CIS policies in Central",
	Long: `Load the policy bundle, check connectivity to Central, and create every
policy whose name does not exist there yet.

Exit codes:
  0  All policies created or skipped
  1  Connection failed, or at least one policy creation failed`,
	Example: `  # Sync with a settings file
  cissync sync --config config.json

  # Preview without touching Central
  cissync sync --config config.json --dry-run

  # Re-create duplicates instead of skipping
  cissync sync --config config.json --skip-existing=false

  # JSON output for pipeline parsing
  cissync sync --config config.json --output json

  # Resolve Central's URL and token from the cluster it runs in
  cissync sync --from-cluster --token-secret central-api-token`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("config", "config.json", "Path to settings file (JSON or YAML)")
	syncCmd.Flags().String("policies", "", "Policy bundle path (overrides policies.config_file)")
	syncCmd.Flags().Bool("skip-existing", true, "Skip policies whose name already exists in Central")
	syncCmd.Flags().Bool("dry-run", false, "Plan creations without calling Central")
	syncCmd.Flags().Duration("timeout", 30*time.Second, "Per-request timeout for Central API calls")
	syncCmd.Flags().StringP("output", "o", "", "Output format: json, table (default: table)")
	syncCmd.Flags().BoolP("quiet", "q", false, "Suppress output, exit code only")

	// In-cluster discovery flags
	syncCmd.Flags().Bool("from-cluster", false, "Resolve Central's URL (and optionally token) from a Kubernetes cluster")
	syncCmd.Flags().String("namespace", discovery.DefaultNamespace, "Namespace of the Central deployment for --from-cluster")
	syncCmd.Flags().String("token-secret", "", "Secret name holding the API token for --from-cluster")
	syncCmd.Flags().String("kubeconfig", "", "Path to kubeconfig")
	syncCmd.Flags().String("context", "", "Kubernetes context to use")
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Reject an unknown --output up front, before any settings load or
	// network call runs for nothing.
	outputFlag, _ := cmd.Flags().GetString("output") //nolint:errcheck // flag registered above
	if outputFlag != "" && outputFlag != "json" && outputFlag != "table" {
		return fmt.Errorf("invalid --output value %q: must be json or table", outputFlag)
	}

	cfg, err := loadSyncSettings(cmd)
	if err != nil {
		return err
	}

	// Settings-file logging applies unless the flags were set explicitly.
	if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-format") {
		applyLogging(cfg.Logging.Level, cfg.Logging.Format)
	}

	skipExisting := cfg.Policies.SkipExisting
	if cmd.Flags().Changed("skip-existing") {
		skipExisting, _ = cmd.Flags().GetBool("skip-existing") //nolint:errcheck // flag registered above
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")      //nolint:errcheck // flag registered above
	timeout, _ := cmd.Flags().GetDuration("timeout") //nolint:errcheck // flag registered above

	policiesPath, _ := cmd.Flags().GetString("policies") //nolint:errcheck // flag registered above
	if policiesPath == "" {
		policiesPath = cfg.Policies.ConfigFile
	}

	clientOpts := []central.Option{
		central.WithTimeout(timeout),
		central.WithTLSVerify(!cfg.Central.InsecureSkipTLSVerify),
	}
	if cfg.Central.SOCKS5Proxy != "" {
		clientOpts = append(clientOpts, central.WithSOCKS5(cfg.Central.SOCKS5Proxy))
	}
	client, err := central.New(cfg.Central.CentralURL, cfg.Central.APIToken, clientOpts...)
	if err != nil {
		return fmt.Errorf("creating Central client: %w", err)
	}

	// Initialize tracing. InitTracer degrades to a noop tracer and shutdown
	// on failure, so both are always safe to use.
	otelEndpoint, _ := cmd.Flags().GetString("otel-endpoint") //nolint:errcheck // flag registered above
	tracer, tracerShutdown, tracerErr := telemetry.InitTracer(ctx, otelEndpoint, "cissync", version)
	if tracerErr != nil {
		slog.Warn("initializing tracer, proceeding untraced", "err", tracerErr)
	}
	defer tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush

	// The bundle is parsed before the first network call so a malformed
	// bundle never touches Central.
	b, err := bundle.Load(policiesPath)
	if err != nil {
		cmd.SilenceUsage = true
		return fmt.Errorf("loading policy bundle: %w", err)
	}
	slog.Info("loaded policy bundle", "path", policiesPath,
		"kubernetes", len(b.Kubernetes), "docker", len(b.Docker), "runtime", len(b.Runtime))

	md, err := client.TestConnection(ctx)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	slog.Info("connected to Central", "url", cfg.Central.CentralURL, "version", md.Version)

	s := syncer.New(client,
		syncer.WithSkipExisting(skipExisting),
		syncer.WithDryRun(dryRun),
		syncer.WithTracer(tracer),
	)
	res := s.Run(ctx, b.All())
	exitCode := monitor.ExitCode(res)

	recordRun(ctx, cfg, res)

	quiet, _ := cmd.Flags().GetBool("quiet") //nolint:errcheck // flag registered above

	if !quiet {
		switch outputFlag {
		case "json":
			if err := monitor.WriteJSON(os.Stdout, res, exitCode); err != nil {
				return fmt.Errorf("writing JSON output: %w", err)
			}
		default:
			fmt.Print(monitor.Summary(res))
		}
	}

	if exitCode != 0 {
		tracerShutdown(context.Background()) //nolint:errcheck // explicit flush because os.Exit bypasses defers
		os.Exit(exitCode)                    //nolint:gocritic // exitAfterDefer — defer is for the normal-return path; this is the failure-exit path
	}
	return nil
}

// loadSyncSettings loads the settings file and, with --from-cluster, fills
// the Central connection fields from the cluster before validating.
func loadSyncSettings(cmd *cobra.Command) (*config.Settings, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	fromCluster, _ := cmd.Flags().GetBool("from-cluster") //nolint:errcheck // flag registered above

	if !fromCluster {
		cfg, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading settings: %w", loadErr)
		}
		return cfg, nil
	}

	// With --from-cluster the settings file is optional.
	cfg, err := config.LoadPartial(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) || cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		cfg = config.Defaults()
	}

	clientset, err := buildKubeClient(cmd)
	if err != nil {
		return nil, err
	}

	namespace, _ := cmd.Flags().GetString("namespace")      //nolint:errcheck // flag registered above
	tokenSecret, _ := cmd.Flags().GetString("token-secret") //nolint:errcheck // flag registered above

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	url, err := discovery.CentralURL(ctx, clientset, namespace)
	if err != nil {
		return nil, err
	}
	cfg.Central.CentralURL = url
	slog.Info("discovered Central service", "url", url)

	if tokenSecret != "" {
		token, tokenErr := discovery.APIToken(ctx, clientset, namespace, tokenSecret, "")
		if tokenErr != nil {
			return nil, tokenErr
		}
		cfg.Central.APIToken = token
	}
	if err := cfg.ResolveToken(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("settings validation: %w", err)
	}
	return cfg, nil
}

func buildKubeClient(cmd *cobra.Command) (kubernetes.Interface, error) {
	kubeconfig, err := cmd.Flags().GetString("kubeconfig")
	if err != nil {
		return nil, err
	}
	kubeCtx, err := cmd.Flags().GetString("context")
	if err != nil {
		return nil, err
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		&clientcmd.ConfigOverrides{CurrentContext: kubeCtx},
	)

	restCfg, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("building kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return clientset, nil
}

// recordRun handles the post-run side channels: history, Pushgateway, and
// webhooks. All are best-effort; failures never change the exit code.
func recordRun(ctx context.Context, cfg *config.Settings, res syncer.Result) {
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("opening history store", "err", err)
		} else {
			if err := store.Save(res); err != nil {
				slog.Warn("saving run history", "err", err)
			}
			store.Close() //nolint:errcheck // best-effort cleanup
		}
	}

	if cfg.Metrics.PushgatewayURL != "" {
		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(reg)
		collector.Update(res)
		if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, reg); err != nil {
			slog.Warn("pushing metrics", "err", err)
		}
	}

	if n := notify.New(cfg.Notifications); n != nil {
		n.Notify(res)
	}
}
