package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
	"github.com/Sumatoshi-tech/wraphound/internal/runner"
)

const (
	scoreThresholdHigh   = 0.8
	scoreThresholdMedium = 0.6
)

// RenderMatches prints the ranked matches as a table. Colors degrade
// gracefully when the writer is not a terminal.
func RenderMatches(w io.Writer, rows []matcher.Match, colorize bool) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No wrapper matches found.")

		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Wrapper", "Target", "Entry", "Category", "Score", "Confidence", "Mapping", "File"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Score", Align: text.AlignRight},
		{Name: "Confidence", Align: text.AlignRight},
	})

	for _, row := range rows {
		t.AppendRow(table.Row{
			row.Wrapper,
			row.Target,
			entryCell(row),
			row.Category,
			scoreCell(row, colorize),
			fmt.Sprintf("%.2f", row.Confidence),
			row.Mapping.String(),
			row.File,
		})
	}

	t.Render()
}

func entryCell(row matcher.Match) string {
	if !row.Matched {
		return "-"
	}

	return row.Entry
}

func scoreCell(row matcher.Match, colorize bool) string {
	if !row.Matched {
		return "unmatched"
	}

	formatted := fmt.Sprintf("%.3f", row.Score)
	if !colorize {
		return formatted
	}

	switch {
	case row.Score >= scoreThresholdHigh:
		return color.GreenString(formatted)
	case row.Score >= scoreThresholdMedium:
		return color.YellowString(formatted)
	default:
		return color.RedString(formatted)
	}
}

// RenderSummary prints run totals after the table.
func RenderSummary(w io.Writer, result *runner.Result, matched, unmatched int) {
	fmt.Fprintf(w, "\nScanned %s translation units in %s",
		humanize.Comma(int64(result.Units)),
		result.Duration.Round(time.Millisecond))

	if len(result.Failures) > 0 {
		fmt.Fprintf(w, " (%s failed to parse)", humanize.Comma(int64(len(result.Failures))))
	}

	if result.Skipped > 0 {
		fmt.Fprintf(w, " (%s skipped after cancellation)", humanize.Comma(int64(result.Skipped)))
	}

	fmt.Fprintf(w, ".\n%s candidates matched, %s below threshold.\n",
		humanize.Comma(int64(matched)),
		humanize.Comma(int64(unmatched)))
}

// RenderFailures lists per-unit parse failures.
func RenderFailures(w io.Writer, failures []runner.UnitFailure) {
	if len(failures) == 0 {
		return
	}

	fmt.Fprintf(w, "\nParse failures (%d):\n", len(failures))

	for _, failure := range failures {
		fmt.Fprintf(w, "  %s: %s\n", failure.Source, failure.Err)
	}
}
