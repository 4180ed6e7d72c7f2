package report

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
)

const (
	scoreBuckets = 10
	chartWidth   = "900px"
	chartHeight  = "500px"
)

// WritePlot renders an HTML page with the composite-score distribution and
// the per-category match counts.
func WritePlot(path string, rows []matcher.Match) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("report: close %s: %w", path, cerr)
		}
	}()

	if err := buildScoreHistogram(rows).Render(f); err != nil {
		return fmt.Errorf("report: render score histogram: %w", err)
	}

	if err := buildCategoryChart(rows).Render(f); err != nil {
		return fmt.Errorf("report: render category chart: %w", err)
	}

	return nil
}

func buildScoreHistogram(rows []matcher.Match) *charts.Bar {
	counts := make([]int, scoreBuckets)

	for _, row := range rows {
		if !row.Matched {
			continue
		}

		bucket := int(row.Score * scoreBuckets)
		if bucket >= scoreBuckets {
			bucket = scoreBuckets - 1
		}

		counts[bucket]++
	}

	labels := make([]string, scoreBuckets)
	values := make([]opts.BarData, scoreBuckets)

	for i := range scoreBuckets {
		labels[i] = fmt.Sprintf("%.1f-%.1f", float64(i)/scoreBuckets, float64(i+1)/scoreBuckets)
		values[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Composite Score Distribution"}),
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Matches"}),
	)
	bar.SetXAxis(labels).AddSeries("matches", values)

	return bar
}

func buildCategoryChart(rows []matcher.Match) *charts.Bar {
	byCategory := make(map[string]int)

	for _, row := range rows {
		if row.Matched {
			byCategory[row.Category]++
		}
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}

	sort.Strings(categories)

	values := make([]opts.BarData, len(categories))
	for i, category := range categories {
		values[i] = opts.BarData{Value: byCategory[category]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Matches by Category"}),
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Matches"}),
	)
	bar.SetXAxis(categories).AddSeries("matches", values)

	return bar
}
