// Package main provides the tracebench command line. It merges trace files, inspects a duration
// distribution, compares benchmark datasets, serves their summaries over HTTP and exports
// traces from Tempo.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tracebench/internal/aggregator"
	"tracebench/internal/config"
	"tracebench/internal/loader"
	"tracebench/internal/metrics"
	"tracebench/internal/models"
	"tracebench/internal/orchestrator"
	"tracebench/internal/output"
	"tracebench/internal/report"
)

// exitNoData is the exit status when a run produced no traces to summarize.
const exitNoData = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, aggregator.ErrNoData) {
			os.Exit(exitNoData)
		}
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	configFile string
	v          *viper.Viper
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tracebench",
		Short: "Trace latency aggregation for pipeline benchmarks",
		Long: `tracebench merges span records exported by the services of a message pipeline,
rebuilds end-to-end traces and reports their mean duration with and without
Tukey outliers, optionally restricted to a time window.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file (default: ./tracebench.yaml, ./config/tracebench.yaml, /etc/tracebench/tracebench.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(a.mergeCmd())
	rootCmd.AddCommand(a.distributionCmd())
	rootCmd.AddCommand(a.compareCmd())
	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.fetchCmd())
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	a.v = config.New(a.configFile)
	if err := a.v.BindPFlag("app.log_level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return fmt.Errorf("failed to bind log level flag: %w", err)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.App.SlogLevel()}))
	slog.SetDefault(a.logger)

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("Loaded config", "file", used, "datasets", len(cfg.Datasets))
	}
	return nil
}

func (a *app) newAggregator() (*aggregator.Aggregator, error) {
	policy, err := aggregator.ParseNegativePolicy(a.cfg.Analysis.NegativeDurations)
	if err != nil {
		return nil, err
	}

	ld := loader.New(
		loader.WithSkipMalformedLines(a.cfg.Loader.SkipMalformedLines),
		loader.WithLogger(a.logger),
	)
	return aggregator.New(ld,
		aggregator.WithLogger(a.logger),
		aggregator.WithIQRMultiplier(a.cfg.Analysis.IQRMultiplier),
		aggregator.WithParallelLoads(a.cfg.Analysis.ParallelLoads),
		aggregator.WithNegativeDurations(policy),
	), nil
}

func (a *app) newOrchestrator() (*orchestrator.Orchestrator, error) {
	agg, err := a.newAggregator()
	if err != nil {
		return nil, err
	}
	return orchestrator.New(agg, a.cfg.Datasets, a.logger), nil
}

// window resolves --window-minutes, falling back to analysis.window. nil means no window.
func (a *app) window(cmd *cobra.Command) (*models.Window, error) {
	if cmd.Flags().Changed("window-minutes") {
		minutes, err := cmd.Flags().GetFloat64("window-minutes")
		if err != nil {
			return nil, err
		}
		if minutes < 0 || math.IsNaN(minutes) {
			return nil, fmt.Errorf("invalid --window-minutes %v: must not be negative", minutes)
		}
		return models.WindowMinutes(minutes), nil
	}

	d, ok, err := a.cfg.Analysis.GetWindow()
	if err != nil || !ok {
		return nil, err
	}
	return &models.Window{Length: d}, nil
}

// writer builds a report writer on the command's stdout, honouring --format when present.
func (a *app) writer(cmd *cobra.Command) (*report.Writer, error) {
	name := a.cfg.Report.Format
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		name = f.Value.String()
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return report.NewWriter(cmd.OutOrStdout(), format, a.cfg.Report.Bins, a.cfg.Report.Width, a.cfg.Analysis.IQRMultiplier), nil
}

// export writes the optional Markdown report and metrics textfile configured under report,
// and posts message to Slack when a webhook is set.
func (a *app) export(ctx context.Context, name, markdown string, rec *metrics.Recorder, message output.SlackMessage) error {
	if dir := a.cfg.Report.MarkdownDir; dir != "" {
		path, err := report.WriteMarkdownFile(dir, name, markdown, timeNow())
		if err != nil {
			return err
		}
		a.logger.Info("Wrote markdown report", "path", path)
	}
	if file := a.cfg.Report.MetricsFile; file != "" {
		if err := rec.WriteTextfile(file); err != nil {
			return err
		}
		a.logger.Info("Wrote metrics textfile", "path", file)
	}
	if url := a.cfg.Report.SlackWebhookURL; url != "" {
		if err := output.NewSlackSender(url).Send(ctx, message); err != nil {
			return err
		}
		a.logger.Info("Posted report to Slack", "report", name)
	}
	return nil
}
