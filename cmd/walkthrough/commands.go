package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tailored-agentic-units/querydb/fees"
	"github.com/tailored-agentic-units/querydb/observability"
	"github.com/tailored-agentic-units/querydb/query"
)

var (
	configFile  string
	verbose     bool
	traceSpans  bool
	showMetrics bool

	baseFee          int
	discountAmount   int
	discountAgeLimit int

	rootCmd = &cobra.Command{
		Use:   "walkthrough",
		Short: "Quote training fees on an incremental query database",
		Long: `walkthrough runs the fee quoting example step by step, printing
the engine's reasoning about which memos are reused and which are recomputed.`,
		SilenceUsage: true,
		RunE:         runWalkthrough,
	}

	quoteCmd = &cobra.Command{
		Use:   "quote [age...]",
		Short: "Quote one and two year fees for the given ages",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuote,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to database config (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "Export OpenTelemetry spans to stderr")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "Print event counters on exit")

	quoteCmd.Flags().IntVar(&baseFee, "base-fee", 100, "Yearly base fee")
	quoteCmd.Flags().IntVar(&discountAmount, "discount-amount", 30, "Discount for customers at or below the age limit")
	quoteCmd.Flags().IntVar(&discountAgeLimit, "discount-age-limit", 16, "Maximum age that receives the discount")

	rootCmd.AddCommand(quoteCmd)
}

// session bundles a fee database with the telemetry set up for one command.
type session struct {
	db       *fees.Database
	registry *prometheus.Registry
	shutdown func(context.Context) error
}

func newSession(trace io.Writer) (*session, error) {
	cfg := query.DefaultConfig("fees")
	if configFile != "" {
		loaded, err := query.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	base, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	s := &session{
		registry: prometheus.NewRegistry(),
		shutdown: func(context.Context) error { return nil },
	}

	metrics, err := observability.NewMetricsObserver(s.registry, observability.DefaultMetricsNamespace)
	if err != nil {
		return nil, err
	}

	observers := []observability.Observer{base, metrics}
	if trace != nil {
		observers = append(observers, query.NewTextObserver(trace))
	}
	opts := []query.Option{}

	if traceSpans {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		s.shutdown = tp.Shutdown
		opts = append(opts, query.WithTracer(tp.Tracer("walkthrough")))
		spanLevel := observability.LevelInfo
		if verbose {
			spanLevel = observability.LevelVerbose
		}
		observers = append(observers, observability.NewLevelFilter(spanLevel, observability.NewSpanObserver()))
	}

	opts = append(opts, query.WithObserver(observability.NewMultiObserver(observers...)))

	s.db, err = fees.New(&cfg, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) close(ctx context.Context, w io.Writer) error {
	if showMetrics {
		if err := writeMetrics(w, s.registry); err != nil {
			return err
		}
	}
	return s.shutdown(ctx)
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func note(w io.Writer, message string) {
	fmt.Fprint(w, "\n\n****\n")
	for _, line := range strings.Split(message, "\n") {
		fmt.Fprintf(w, "**  %s\n", strings.TrimSpace(line))
	}
	fmt.Fprint(w, "**\n\n")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var trace io.Writer
	if verbose {
		trace = out
	}
	s, err := newSession(trace)
	if err != nil {
		return err
	}

	if err := s.db.SetBaseFee(ctx, baseFee); err != nil {
		return err
	}
	if err := s.db.SetDiscountAmount(ctx, discountAmount); err != nil {
		return err
	}
	if err := s.db.SetDiscountAgeLimit(ctx, discountAgeLimit); err != nil {
		return err
	}

	for _, arg := range args {
		var age fees.Years
		if _, err := fmt.Sscan(arg, &age); err != nil {
			return fmt.Errorf("invalid age %q: %w", arg, err)
		}
		one, err := s.db.OneYearFee(ctx, age)
		if err != nil {
			return err
		}
		two, err := s.db.TwoYearFee(ctx, age)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "age %d: one year %d, two years %d\n", age, one, two)
	}

	return s.close(ctx, out)
}
