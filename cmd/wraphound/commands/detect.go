package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
	"github.com/Sumatoshi-tech/wraphound/internal/config"
	"github.com/Sumatoshi-tech/wraphound/internal/report"
)

// DetectCommand holds configuration for the detection-only command.
type DetectCommand struct {
	configPath  string
	catalogPath string
	output      string
	mode        string
	workers     int
	tolerance   int
	pathMaps    []string
	metricsAddr string
	verbose     bool
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	dc := &DetectCommand{}

	cmd := &cobra.Command{
		Use:   "detect <compile_commands.json>",
		Short: "Scan a compilation database and emit wrapper candidates",
		Long: `Scan every C/C++ translation unit of a compilation database for
wrapper functions. Candidates are written to --output; the extension
picks the format (.json, .jsonl, .csv, optionally with a trailing
.lz4), and the file can later feed the match command.`,
		Args: cobra.ExactArgs(1),
		RunE: dc.run,
	}

	cmd.Flags().StringVar(&dc.configPath, "config", "", "Config file path (default: .wraphound.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&dc.catalogPath, "catalog", "", "Catalog YAML; used here only for its helper-function lists")
	cmd.Flags().StringVarP(&dc.output, "output", "o", "candidates.jsonl", "Candidate output file")
	cmd.Flags().StringVar(&dc.mode, "mode", "", "Detection mode: strict or relaxed")
	cmd.Flags().IntVar(&dc.workers, "workers", 0, "Number of parallel workers (0 = use CPU count)")
	cmd.Flags().IntVar(&dc.tolerance, "tolerance", 0, "Extra non-forwarding statements tolerated per body (0 = default)")
	cmd.Flags().StringSliceVar(&dc.pathMaps, "path-map", nil, "Rewrite path prefixes, old=new (repeatable)")
	cmd.Flags().StringVar(&dc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVarP(&dc.verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func (dc *DetectCommand) run(cmd *cobra.Command, args []string) error {
	log := newLogger(dc.verbose)

	cfg, err := config.LoadConfig(dc.configPath)
	if err != nil {
		return err
	}

	dc.applyOverrides(cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return fmt.Errorf("validate config: %w", validateErr)
	}

	var cat *catalog.Catalog

	if dc.catalogPath != "" {
		cat, err = catalog.Load(dc.catalogPath)
		if err != nil {
			return err
		}
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

	if err := report.WriteCandidates(dc.output, result.Candidates); err != nil {
		return err
	}

	log.Info("detection finished",
		"units", result.Units,
		"failures", len(result.Failures),
		"candidates", len(result.Candidates),
		"output", dc.output,
		"duration", result.Duration)

	report.RenderFailures(cmd.ErrOrStderr(), result.Failures)

	return nil
}

func (dc *DetectCommand) applyOverrides(cfg *config.Config) {
	if dc.mode != "" {
		cfg.Detect.Mode = dc.mode
	}

	if dc.workers > 0 {
		cfg.Detect.Workers = dc.workers
	}

	if dc.tolerance > 0 {
		cfg.Detect.StatementTolerance = dc.tolerance
	}

	if len(dc.pathMaps) > 0 {
		cfg.Detect.PathMaps = dc.pathMaps
	}

	if dc.metricsAddr != "" {
		cfg.Metrics.Addr = dc.metricsAddr
	}
}
