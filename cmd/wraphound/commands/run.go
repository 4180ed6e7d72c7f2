package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
	"github.com/Sumatoshi-tech/wraphound/internal/config"
	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
	"github.com/Sumatoshi-tech/wraphound/internal/report"
)

var errUnknownOutputFormat = errors.New("unknown output format")

// RunCommand holds configuration for the combined detect-and-match command.
type RunCommand struct {
	configPath    string
	catalogPath   string
	mode          string
	workers       int
	tolerance     int
	pathMaps      []string
	threshold     float64
	showUnmatched bool
	format        string
	noColor       bool
	candidatesOut string
	plotPath      string
	metricsAddr   string
	verbose       bool
}

// NewRunCommand creates the combined run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run <compile_commands.json>",
		Short: "Detect wrapper functions and rank them against a catalog",
		Long: `Scan a compilation database for wrapper functions and rank every
candidate against the primitive catalog in one pass. Equivalent to
detect followed by match, without the intermediate candidate file.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.configPath, "config", "", "Config file path (default: .wraphound.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&rc.catalogPath, "catalog", "", "Catalog YAML with known primitives (required unless configured)")
	cmd.Flags().StringVar(&rc.mode, "mode", "", "Detection mode: strict or relaxed")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Number of parallel workers (0 = use CPU count)")
	cmd.Flags().IntVar(&rc.tolerance, "tolerance", 0, "Extra non-forwarding statements tolerated per body (0 = default)")
	cmd.Flags().StringSliceVar(&rc.pathMaps, "path-map", nil, "Rewrite path prefixes, old=new (repeatable)")
	cmd.Flags().Float64VarP(&rc.threshold, "threshold", "t", -1, "Minimum name similarity for a match in [0,1]")
	cmd.Flags().BoolVar(&rc.showUnmatched, "show-unmatched", false, "Keep below-threshold candidates in the output")
	cmd.Flags().StringVar(&rc.format, "format", formatTable, "Output format: table, json, jsonl, csv")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().StringVar(&rc.candidatesOut, "candidates-out", "", "Also write raw candidates to this file")
	cmd.Flags().StringVar(&rc.plotPath, "plot", "", "Write an HTML score-distribution plot to this file")
	cmd.Flags().StringVar(&rc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	log := newLogger(rc.verbose)

	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	rc.applyOverrides(cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return fmt.Errorf("validate config: %w", validateErr)
	}

	if cfg.Match.Catalog == "" {
		return ErrNoCatalog
	}

	// Load the catalog before any parsing so an empty or malformed one
	// aborts without wasted work.
	cat, err := catalog.Load(cfg.Match.Catalog)
	if err != nil {
		return err
	}

	units, err := loadUnits(args[0], cfg)
	if err != nil {
		return err
	}

	metrics, err := startMetrics(cmd.Context(), cfg.Metrics.Addr, log)
	if err != nil {
		return err
	}

	r := newRunner(cfg, cat, metrics, log)
	result := r.Detect(cmd.Context(), units)

	if rc.candidatesOut != "" {
		if err := report.WriteCandidates(rc.candidatesOut, result.Candidates); err != nil {
			return err
		}

		log.Info("wrote candidates", "path", rc.candidatesOut, "count", len(result.Candidates))
	}

	rows, err := matcher.Rank(result.Candidates, cat, matchOptions(cfg))
	if err != nil {
		return err
	}

	matched, unmatched := countMatched(rows)
	metrics.RecordMatches(cmd.Context(), matched, unmatched)

	if err := writeMatches(cmd.OutOrStdout(), rc.format, rows, !rc.noColor); err != nil {
		return err
	}

	if rc.format == formatTable {
		report.RenderSummary(cmd.OutOrStdout(), result, matched, unmatched)
		report.RenderFailures(cmd.ErrOrStderr(), result.Failures)
	}

	if rc.plotPath != "" {
		if err := report.WritePlot(rc.plotPath, rows); err != nil {
			return err
		}

		log.Info("wrote plot", "path", rc.plotPath)
	}

	return nil
}

func (rc *RunCommand) applyOverrides(cfg *config.Config) {
	if rc.catalogPath != "" {
		cfg.Match.Catalog = rc.catalogPath
	}

	if rc.mode != "" {
		cfg.Detect.Mode = rc.mode
	}

	if rc.workers > 0 {
		cfg.Detect.Workers = rc.workers
	}

	if rc.tolerance > 0 {
		cfg.Detect.StatementTolerance = rc.tolerance
	}

	if len(rc.pathMaps) > 0 {
		cfg.Detect.PathMaps = rc.pathMaps
	}

	if rc.threshold >= 0 {
		cfg.Match.Threshold = rc.threshold
	}

	if rc.showUnmatched {
		cfg.Match.ShowUnmatched = true
	}

	if rc.metricsAddr != "" {
		cfg.Metrics.Addr = rc.metricsAddr
	}
}
