package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tracebench/internal/aggregator"
	"tracebench/internal/clients/tempo"
	"tracebench/internal/metrics"
	"tracebench/internal/output"
	"tracebench/internal/report"
	"tracebench/internal/server"
)

var timeNow = time.Now

func addWindowFlag(fs *pflag.FlagSet, usage string) {
	fs.Float64("window-minutes", 0, usage)
}

func addFormatFlag(fs *pflag.FlagSet) {
	fs.String("format", "", "Output format: text, json, markdown")
}

func (a *app) mergeCmd() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "merge [FILES...]",
		Short: "Merge span files into traces and summarize their durations",
		Long: `Merge newline-delimited span files (flat records or OTLP JSON), group the spans
by trace id and print the mean trace duration with and without outliers.
Use --dataset to merge the files of a configured benchmark dataset instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataset != "" && len(args) > 0 {
				return errors.New("pass either trace files or --dataset, not both")
			}
			if dataset == "" && len(args) == 0 {
				return errors.New("no trace files given")
			}

			window, err := a.window(cmd)
			if err != nil {
				return err
			}
			w, err := a.writer(cmd)
			if err != nil {
				return err
			}
			name, title := "merge", "Merged traces"
			rec := metrics.NewRecorder()

			if dataset != "" {
				orch, err := a.newOrchestrator()
				if err != nil {
					return err
				}
				result, err := orch.RunDataset(cmd.Context(), dataset, window)
				if err != nil {
					return err
				}
				name = result.Name
				title = fmt.Sprintf("Dataset %s (%d msg/s)", result.Name, result.Rate)
				rec.Observe(name, *result.Summary)
				if err := w.Summary(title, *result.Summary); err != nil {
					return err
				}
				return a.export(cmd.Context(), name, report.SummaryMarkdown(title, *result.Summary), rec, output.SummaryMessage(title, *result.Summary))
			}

			agg, err := a.newAggregator()
			if err != nil {
				return err
			}
			summary, err := agg.MergeAndCalculate(cmd.Context(), args, window)
			if err != nil {
				return err
			}
			rec.Observe(name, *summary)
			if err := w.Summary(title, *summary); err != nil {
				return err
			}
			return a.export(cmd.Context(), name, report.SummaryMarkdown(title, *summary), rec, output.SummaryMessage(title, *summary))
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Merge the files of a configured dataset")
	addWindowFlag(cmd.Flags(), "Only keep traces starting within N minutes of the earliest trace")
	addFormatFlag(cmd.Flags())
	return cmd
}

func (a *app) distributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribution FILE",
		Short: "Show span and trace duration distributions of a Jaeger JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("bins") {
				bins, err := cmd.Flags().GetInt("bins")
				if err != nil {
					return err
				}
				a.cfg.Report.Bins = bins
			}

			w, err := a.writer(cmd)
			if err != nil {
				return err
			}
			agg, err := a.newAggregator()
			if err != nil {
				return err
			}

			d, err := agg.Distribution(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := w.Distribution(d); err != nil {
				return err
			}

			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			rec := metrics.NewRecorder()
			rec.ObserveDistribution(name, *d)
			return a.export(cmd.Context(), name, report.DistributionMarkdown(d), rec, output.DistributionMessage(d))
		},
	}

	cmd.Flags().Int("bins", 0, "Histogram bins (default from report.bins)")
	addFormatFlag(cmd.Flags())
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Summarize every configured dataset side by side",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Datasets) == 0 {
				return errors.New("no datasets configured")
			}

			window, err := a.window(cmd)
			if err != nil {
				return err
			}
			w, err := a.writer(cmd)
			if err != nil {
				return err
			}
			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}

			results, err := orch.Compare(cmd.Context(), window)
			if err != nil {
				return err
			}
			if err := w.Comparison(results); err != nil {
				return err
			}

			rec := metrics.NewRecorder()
			succeeded := 0
			for _, res := range results {
				if res.Summary != nil {
					rec.Observe(res.Name, *res.Summary)
					succeeded++
				}
			}
			if err := a.export(cmd.Context(), "compare", report.ComparisonMarkdown(results), rec, output.ComparisonMessage(results)); err != nil {
				return err
			}
			if succeeded == 0 {
				return fmt.Errorf("%w: no dataset produced a summary", aggregator.ErrNoData)
			}
			return nil
		},
	}

	addWindowFlag(cmd.Flags(), "Only keep traces starting within N minutes of the earliest trace")
	addFormatFlag(cmd.Flags())
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dataset summaries and Prometheus metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				port, err := cmd.Flags().GetInt("port")
				if err != nil {
					return err
				}
				a.cfg.App.Port = port
			}

			window, err := a.window(cmd)
			if err != nil {
				return err
			}
			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}

			handler := server.NewHandler(orch, metrics.NewRecorder(), window, a.logger)
			return server.New(a.cfg.App.Addr(), handler, a.logger).Run(cmd.Context())
		},
	}

	cmd.Flags().IntP("port", "p", 0, "Listen port (default from app.port)")
	addWindowFlag(cmd.Flags(), "Default window for requests that do not name one")
	return cmd
}

func (a *app) fetchCmd() *cobra.Command {
	var (
		service     string
		minDuration time.Duration
		since       time.Duration
		out         string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Export traces from Tempo into an OTLP JSON line file",
		Long: `Search Tempo with TraceQL and write every matching trace as one OTLP JSON line,
ready to be passed to merge or listed in a dataset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if since <= 0 {
				return fmt.Errorf("invalid --since %s: must be positive", since)
			}
			tempoURL := a.cfg.Tempo.URL
			if cmd.Flags().Changed("tempo-url") {
				tempoURL, _ = cmd.Flags().GetString("tempo-url")
			}
			limit := a.cfg.Tempo.SearchLimit
			if cmd.Flags().Changed("limit") {
				limit, _ = cmd.Flags().GetInt("limit")
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			client := tempo.NewClient(tempoURL, a.cfg.Tempo.GetTimeoutDuration(), a.logger)
			end := timeNow()
			n, err := client.Export(cmd.Context(), f, tempo.BuildSlowSpansQuery(service, minDuration), end.Add(-since), end, limit)
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", out, err)
			}

			a.logger.Info("Exported traces", "path", out, "traces", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d traces to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Only traces touching this service")
	cmd.Flags().DurationVar(&minDuration, "min-duration", 0, "Only traces with a span longer than this")
	cmd.Flags().DurationVar(&since, "since", time.Hour, "Search window ending now")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.Flags().String("tempo-url", "", "Tempo base URL (default from tempo.url)")
	cmd.Flags().Int("limit", 0, "Maximum traces to export (default from tempo.search_limit)")
	return cmd
}
