package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
	"github.com/Sumatoshi-tech/wraphound/internal/config"
	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
	"github.com/Sumatoshi-tech/wraphound/internal/report"
)

// Output formats for ranked matches.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatJSONL = "jsonl"
	formatCSV   = "csv"
)

// MatchCommand holds configuration for the matching-only command.
type MatchCommand struct {
	configPath    string
	catalogPath   string
	threshold     float64
	showUnmatched bool
	format        string
	noColor       bool
	explain       string
	topK          int
	plotPath      string
	verbose       bool
}

// NewMatchCommand creates the match command.
func NewMatchCommand() *cobra.Command {
	mc := &MatchCommand{}

	cmd := &cobra.Command{
		Use:   "match <candidates-file>",
		Short: "Rank previously detected candidates against a catalog",
		Long: `Load a candidate file produced by the detect command, merge repeated
observations, and rank every candidate against the primitive catalog.
Malformed candidate records are skipped with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: mc.run,
	}

	cmd.Flags().StringVar(&mc.configPath, "config", "", "Config file path (default: .wraphound.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&mc.catalogPath, "catalog", "", "Catalog YAML with known primitives (required unless configured)")
	cmd.Flags().Float64VarP(&mc.threshold, "threshold", "t", -1, "Minimum name similarity for a match in [0,1]")
	cmd.Flags().BoolVar(&mc.showUnmatched, "show-unmatched", false, "Keep below-threshold candidates in the output")
	cmd.Flags().StringVar(&mc.format, "format", formatTable, "Output format: table, json, jsonl, csv")
	cmd.Flags().BoolVar(&mc.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().StringVar(&mc.explain, "explain", "", "Show the nearest catalog entries for one target name")
	cmd.Flags().IntVar(&mc.topK, "top-k", 0, "Alternatives shown by --explain (0 = configured default)")
	cmd.Flags().StringVar(&mc.plotPath, "plot", "", "Write an HTML score-distribution plot to this file")
	cmd.Flags().BoolVarP(&mc.verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func (mc *MatchCommand) run(cmd *cobra.Command, args []string) error {
	log := newLogger(mc.verbose)

	cfg, err := config.LoadConfig(mc.configPath)
	if err != nil {
		return err
	}

	mc.applyOverrides(cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return fmt.Errorf("validate config: %w", validateErr)
	}

	if cfg.Match.Catalog == "" {
		return ErrNoCatalog
	}

	cat, err := catalog.Load(cfg.Match.Catalog)
	if err != nil {
		return err
	}

	cands, skipped, err := report.ReadCandidates(args[0], log)
	if err != nil {
		return err
	}

	if skipped > 0 {
		log.Warn("skipped malformed candidates", "count", skipped)
	}

	opts := matchOptions(cfg)

	rows, err := matcher.Rank(cands, cat, opts)
	if err != nil {
		return err
	}

	if mc.explain != "" {
		mc.renderExplain(cmd.OutOrStdout(), cat, opts, cfg.Match.TopK)
	}

	if err := writeMatches(cmd.OutOrStdout(), mc.format, rows, !mc.noColor); err != nil {
		return err
	}

	if mc.plotPath != "" {
		if err := report.WritePlot(mc.plotPath, rows); err != nil {
			return err
		}

		log.Info("wrote plot", "path", mc.plotPath)
	}

	return nil
}

func (mc *MatchCommand) renderExplain(w io.Writer, cat *catalog.Catalog, opts matcher.Options, topK int) {
	affixes := matcher.DefaultAffixes()
	if opts.Affixes != nil {
		affixes = *opts.Affixes
	}

	scorer := matcher.NewScorer(affixes)
	alts := matcher.Alternatives(scorer, mc.explain, cat, topK)

	fmt.Fprintf(w, "Nearest catalog entries for %q:\n", mc.explain)

	for _, alt := range alts {
		fmt.Fprintf(w, "  %-24s %-12s %.3f  %s\n",
			alt.Name, alt.Category, alt.Similarity, matcher.RenderDiff(alt.Diffs))
	}

	fmt.Fprintln(w)
}

func (mc *MatchCommand) applyOverrides(cfg *config.Config) {
	if mc.catalogPath != "" {
		cfg.Match.Catalog = mc.catalogPath
	}

	if mc.threshold >= 0 {
		cfg.Match.Threshold = mc.threshold
	}

	if mc.showUnmatched {
		cfg.Match.ShowUnmatched = true
	}

	if mc.topK > 0 {
		cfg.Match.TopK = mc.topK
	}
}

func writeMatches(w io.Writer, format string, rows []matcher.Match, colorize bool) error {
	switch format {
	case formatTable:
		report.RenderMatches(w, rows, colorize)

		return nil
	case formatJSON:
		return report.WriteMatchesJSON(w, rows)
	case formatJSONL:
		return report.WriteMatchesJSONL(w, rows)
	case formatCSV:
		return report.WriteMatchesCSV(w, rows)
	}

	return fmt.Errorf("%w: %s", errUnknownOutputFormat, format)
}
