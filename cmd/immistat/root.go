package main

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spektr-org/immistat/engine"
	"github.com/spektr-org/immistat/internal/config"
	"github.com/spektr-org/immistat/loader"
)

const version = "0.3.0"

// app carries the persistent flags and what PersistentPreRunE builds from
// them. Every subcommand closes over the same app.
type app struct {
	source   string
	sheet    string
	strict   bool
	format   string
	out      string
	logLevel string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "immistat",
		Short: "Immigrant population statistics by district and governorate",
		Long: `immistat loads a district-level population table (CSV or XLSX, local
or s3://bucket/key) whose category columns are named "Number of <Category>"
and answers ranking, grouping and composition questions about it.

Settings come from the environment (IMMISTAT_*, LOG_LEVEL, LOG_FORMAT) and
.env files; flags override them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	f := cmd.PersistentFlags()
	f.StringVar(&a.source, "source", "", "CSV/XLSX path or s3://bucket/key (default $IMMISTAT_SOURCE)")
	f.StringVar(&a.sheet, "sheet", "", "XLSX sheet to read (default first sheet)")
	f.BoolVar(&a.strict, "strict", false, "log a warning for every row with coerced cells")
	f.StringVarP(&a.format, "format", "f", formatJSON, "output format: json, pretty, yaml, table, csv")
	f.StringVarP(&a.out, "out", "o", "", "write output to file instead of stdout")
	f.StringVar(&a.logLevel, "log-level", "", "silent, error, warn, info or debug (default $LOG_LEVEL)")

	cmd.AddCommand(newDiscoverCmd(a))
	cmd.AddCommand(newSummaryCmd(a))
	cmd.AddCommand(newTopCmd(a))
	cmd.AddCommand(newDistrictsCmd(a))
	cmd.AddCommand(newGovernoratesCmd(a))
	cmd.AddCommand(newCategoriesCmd(a))
	cmd.AddCommand(newCompositionCmd(a))
	cmd.AddCommand(newLeadingCmd(a))
	cmd.AddCommand(newQueryCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newServeCmd(a))
	return cmd
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}

// init loads configuration, applies flag overrides and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return withCode(exitUsage, err)
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = a.source
	}
	if flags.Changed("sheet") {
		cfg.Sheet = a.sheet
	}
	if flags.Changed("strict") {
		cfg.Strict = a.strict
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return withCode(exitUsage, err)
	}
	if !validFormat(a.format) {
		return withCode(exitUsage, errors.Errorf("unknown format %q (want json, pretty, yaml, table or csv)", a.format))
	}

	a.cfg = cfg
	a.log = cfg.Logger()
	a.log.SetOutput(cmd.ErrOrStderr())
	return nil
}

// load reads the configured source.
func (a *app) load(ctx context.Context) (*loader.Result, error) {
	src, err := loader.OpenSource(ctx, a.cfg.Source, a.cfg.S3())
	if err != nil {
		return nil, engine.NewDataSourceError(a.cfg.Source, err)
	}
	return loader.Load(ctx, src, a.cfg.LoaderOptions(a.log)...)
}

func (a *app) engineOptions() []engine.Option {
	return []engine.Option{
		engine.WithLogger(a.log),
		engine.WithDefaultTopN(a.cfg.TopN),
	}
}

// write renders v to --out, or to stdout when --out is unset.
func (a *app) write(cmd *cobra.Command, v any, tab tabler) error {
	return a.output(cmd, func(w io.Writer) error {
		return render(w, a.format, v, tab)
	})
}

func (a *app) output(cmd *cobra.Command, write func(io.Writer) error) error {
	if a.out == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(a.out)
	if err != nil {
		return withCode(exitOutput, errors.Wrap(err, "create output file"))
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return withCode(exitOutput, errors.Wrap(err, "close output file"))
	}
	a.log.WithField("path", a.out).Info("output written")
	return nil
}
