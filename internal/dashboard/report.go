package dashboard

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/idea-collector/internal/domain"
)

// RenderReport writes an HTML page charting one collection run.
func RenderReport(w io.Writer, res domain.CollectionResult) error {
	sources := sourceNames(res)
	subtitle := fmt.Sprintf("run %s at %s: %d records, %d failed calls",
		res.RunID, res.RunAt.UTC().Format("2006-01-02 15:04:05Z"), res.TotalRecords, res.ErrorCount())

	page := components.NewPage()
	page.AddCharts(
		sourcePie(res, sources, subtitle),
		termBar(res, sources),
		errorBar(res, sources),
	)
	return page.Render(w)
}

// 1. Source share
func sourcePie(res domain.CollectionResult, sources []string, subtitle string) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Records per source", Subtitle: subtitle}),
	)

	items := make([]opts.PieData, 0, len(sources))
	for _, s := range sources {
		items = append(items, opts.PieData{Name: s, Value: res.Sources[s].Count})
	}
	pie.AddSeries("Records", items)
	return pie
}

// 2. Term volume, stacked by source
func termBar(res domain.CollectionResult, sources []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Records per term"}),
	)

	counts := make(map[string]map[string]int) // source -> term -> n
	for _, r := range res.Records {
		if counts[r.Source] == nil {
			counts[r.Source] = make(map[string]int)
		}
		counts[r.Source][r.Term]++
	}

	terms := res.SearchTerms
	bar.SetXAxis(terms)
	for _, s := range sources {
		data := make([]opts.BarData, 0, len(terms))
		for _, t := range terms {
			data = append(data, opts.BarData{Value: counts[s][t]})
		}
		bar.AddSeries(s, data, charts.WithBarChartOpts(opts.BarChart{Stack: "records"}))
	}
	return bar
}

// 3. Failed calls
func errorBar(res domain.CollectionResult, sources []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Failed calls per source"}),
	)

	data := make([]opts.BarData, 0, len(sources))
	for _, s := range sources {
		data = append(data, opts.BarData{Value: len(res.Sources[s].Errors)})
	}
	bar.SetXAxis(sources).AddSeries("Errors", data)
	return bar
}

func sourceNames(res domain.CollectionResult) []string {
	names := make([]string, 0, len(res.Sources))
	for name := range res.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
