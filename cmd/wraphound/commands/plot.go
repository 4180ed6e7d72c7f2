package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/wraphound/internal/report"
)

const defaultPlotOutput = "wraphound-plot.html"

// PlotCommand holds configuration for the plotting command.
type PlotCommand struct {
	output  string
	verbose bool
}

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	pc := &PlotCommand{}

	cmd := &cobra.Command{
		Use:   "plot <matches-file>",
		Short: "Render an HTML score plot from a ranked matches file",
		Long: `Load ranked matches written by "match --format json" or jsonl and render
the composite-score histogram and per-category counts as a standalone HTML
page. The run and match commands can also plot directly via --plot; this
command re-plots existing results without re-ranking.`,
		Args: cobra.ExactArgs(1),
		RunE: pc.run,
	}

	cmd.Flags().StringVarP(&pc.output, "output", "o", defaultPlotOutput, "HTML file to write")
	cmd.Flags().BoolVarP(&pc.verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func (pc *PlotCommand) run(cmd *cobra.Command, args []string) error {
	log := newLogger(pc.verbose)

	rows, err := report.ReadMatches(args[0])
	if err != nil {
		return err
	}

	if err := report.WritePlot(pc.output, rows); err != nil {
		return err
	}

	log.Info("wrote plot", "path", pc.output, "rows", len(rows))

	return nil
}
