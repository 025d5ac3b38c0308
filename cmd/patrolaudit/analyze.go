package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/patrolaudit/internal/config"
	"github.com/crimson-sun/patrolaudit/internal/connector"
	"github.com/crimson-sun/patrolaudit/internal/engine"
	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/filter"
	"github.com/crimson-sun/patrolaudit/internal/logging"
	"github.com/crimson-sun/patrolaudit/internal/model"
	"github.com/crimson-sun/patrolaudit/internal/output"
	"github.com/crimson-sun/patrolaudit/internal/output/csv"
	"github.com/crimson-sun/patrolaudit/internal/output/file"
	"github.com/crimson-sun/patrolaudit/internal/output/multi"
	"github.com/crimson-sun/patrolaudit/internal/output/report"
	"github.com/crimson-sun/patrolaudit/internal/output/stdout"
	"github.com/crimson-sun/patrolaudit/internal/output/webhook"
	"github.com/crimson-sun/patrolaudit/internal/pipeline"
)

type analyzeFlags struct {
	format      string
	out         string
	webhook     string
	pretty      bool
	verbosity   string
	guard       string
	shift       string
	date        string
	urls        []string
	logLevel    string
	concurrency int
	maxInterval float64
	locations   int
	dateOrder   string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Analyze one or more patrol logs",
		Long: `Analyze reads each file (or stdin when none is given, or for "-"),
plus every --url, and writes one report per input.

Exit status is 0 on success, 1 on error, and 2 when an input contains
neither rounds nor violations, which usually means the log is not in
the expected "MM/DD/YYYY HH:MM[:SS] [|] MESSAGE" format.`,
		Example: `  patrolaudit analyze night-shift.txt --format report
  patrolaudit analyze --url https://collector.example/export --guard robson
  cat export.txt | patrolaudit analyze --format csv --shift night`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.format, "format", "f", "", "output format: json, report or csv")
	fl.StringVarP(&f.out, "out", "o", "", "write reports to this file instead of stdout")
	fl.StringVar(&f.webhook, "webhook", "", "also POST reports to this URL")
	fl.BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	fl.StringVar(&f.verbosity, "verbosity", "", "evidence kept per violation: minimal, standard or full")
	fl.StringVar(&f.guard, "guard", "", "only report violations attributed to this guard")
	fl.StringVar(&f.shift, "shift", "", "only report violations in this shift: day or night")
	fl.StringVar(&f.date, "date", "", "only report violations on this day (YYYY-MM-DD)")
	fl.StringSliceVar(&f.urls, "url", nil, "fetch a log over HTTP (repeatable)")
	fl.StringVar(&f.logLevel, "log-level", "", "diagnostic log level: debug, info, warn or error")
	fl.IntVar(&f.concurrency, "concurrency", 0, "inputs analyzed at once")
	fl.Float64Var(&f.maxInterval, "max-interval", 0, "longest allowed gap between checkpoints, in minutes")
	fl.IntVar(&f.locations, "locations", 0, "checkpoints in a complete round")
	fl.StringVar(&f.dateOrder, "date-order", "", "date field order in the log: mdy or dmy")
	return cmd
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, f analyzeFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("out") {
		cfg.Output.Path = f.out
	}
	if changed("webhook") {
		cfg.Output.WebhookURL = f.webhook
	}
	if changed("pretty") {
		cfg.Output.Pretty = f.pretty
	}
	if changed("verbosity") {
		cfg.Output.Verbosity = f.verbosity
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("max-interval") {
		cfg.Settings.MaxIntervalMinutes = f.maxInterval
	}
	if changed("locations") {
		cfg.Settings.TotalLocations = f.locations
	}
	if changed("date-order") {
		cfg.Settings.DateOrder = model.DateOrder(f.dateOrder)
	}
}

func parseCriteria(f analyzeFlags) (filter.Criteria, error) {
	shift, err := filter.ParseShift(f.shift)
	if err != nil {
		return filter.Criteria{}, err
	}
	date, err := filter.ParseDate(f.date)
	if err != nil {
		return filter.Criteria{}, err
	}
	return filter.Criteria{Guard: f.guard, Shift: shift, Date: date}, nil
}

// sourceConfigs turns file arguments and URLs into source configs.
// With no inputs at all, stdin is read.
func sourceConfigs(args, urls []string, src config.SourceConfig) []connector.SourceConfig {
	locations := append(append([]string(nil), args...), urls...)
	if len(locations) == 0 {
		locations = []string{"-"}
	}
	cfgs := make([]connector.SourceConfig, len(locations))
	for i, loc := range locations {
		sc := connector.Resolve(loc)
		if sc.Provider == "http" {
			sc.Token = src.Token
			sc.Extra = map[string]string{"timeout": src.Timeout.String()}
			if src.HTTPFormat != "" {
				sc.Extra["format"] = src.HTTPFormat
			}
		}
		cfgs[i] = sc
	}
	return cfgs
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string, f analyzeFlags) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	criteria, err := parseCriteria(f)
	if err != nil {
		return err
	}

	logger := a.initLogger(cfg.Logging.JSON, logging.ParseLevel(cfg.Logging.Level))

	eng, err := engine.New(cfg.Settings, cfg.Vocabulary, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	out, err := buildOutput(cfg, a.stdout, logger)
	if err != nil {
		return err
	}

	p, err := pipeline.New(eng, out,
		pipeline.WithFilter(criteria),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		out.Close()
		return err
	}

	results, err := p.AnalyzeAll(cmd.Context(), sourceConfigs(args, f.urls, cfg.Source))
	if cerr := p.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	if err != nil {
		return err
	}

	noData := false
	for _, res := range results {
		rep := res.Report
		logger.Debug("guards with violations", "source", rep.Source, "guards", filter.Guards(rep.AnalysisResult))
		if !res.NoPatrolData() {
			continue
		}
		noData = true
		if rep.Events == 0 && rep.Dropped == 0 {
			logger.Warn("input is empty", "source", rep.Source)
		} else {
			logger.Warn("no patrol rounds found; check that the log matches the expected line format",
				"source", rep.Source, "dropped", rep.Dropped)
		}
	}
	if noData {
		return errNoPatrolData
	}
	return nil
}

// buildOutput assembles the configured destination, plus the webhook when set.
func buildOutput(cfg *config.Config, w io.Writer, logger *slog.Logger) (output.Output, error) {
	verbosity, err := compactor.ParseVerbosity(cfg.Output.Verbosity)
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	var primary output.Output
	switch format {
	case output.JSON:
		if cfg.Output.Path != "" {
			primary, err = file.New(cfg.Output.Path, verbosity,
				file.WithMaxSize(cfg.Output.RotateBytes),
				file.WithKeep(cfg.Output.RotateKeep),
			)
		} else {
			primary = stdout.New(verbosity, cfg.Output.Pretty, stdout.WithWriter(w))
		}
	case output.Text, output.CSV:
		dst, closer := w, io.Closer(nil)
		if cfg.Output.Path != "" {
			fh, ferr := os.Create(cfg.Output.Path)
			if ferr != nil {
				return nil, fmt.Errorf("%s output: %w", format, ferr)
			}
			dst, closer = fh, fh
		}
		if format == output.CSV {
			primary = csv.New(dst, "")
		} else {
			primary = report.New(dst, verbosity)
		}
		if closer != nil {
			primary = &closingOutput{Output: primary, closer: closer}
		}
	}
	if err != nil {
		return nil, err
	}

	if cfg.Output.WebhookURL == "" {
		return primary, nil
	}
	hook := webhook.New(cfg.Output.WebhookURL,
		webhook.WithHeaders(cfg.Output.WebhookHeaders),
		webhook.WithSecret(cfg.Output.WebhookSecret),
		webhook.WithTimeout(cfg.Source.Timeout),
		webhook.WithFlushInterval(time.Second),
		webhook.WithOnError(func(err error) { logger.Warn("webhook flush error", "error", err) }),
	)
	return multi.New(primary, hook), nil
}

// closingOutput closes the file an output writes to after the output itself.
type closingOutput struct {
	output.Output
	closer io.Closer
}

func (c *closingOutput) Close() error {
	err := c.Output.Close()
	if cerr := c.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
