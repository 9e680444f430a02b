package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "1200px"
	chartHeight = "420px"
	pieWidth    = "620px"
)

// writeDashboard renders every chart onto one scrollable page. cmp adds an
// overlay section when the run was profiled against a baseline.
func (r *Report) writeDashboard(w io.Writer, cmp *Comparison) error {
	page := components.NewPage()
	page.PageTitle = "gcodelens dashboard"
	page.SetLayout(components.PageFlexLayout)

	if len(r.Groups) > 0 {
		page.AddCharts(r.timeChart(), r.speedChart(), r.flowChart())
	}
	if len(r.Categories) > 0 {
		page.AddCharts(r.categoryPie())
	}
	if len(r.SpeedHist) > 0 {
		page.AddCharts(histBar("Speed distribution", "mm/s", "time spent (s)", r.SpeedHist))
	}
	if len(r.FlowHist) > 0 {
		page.AddCharts(histBar("Flow distribution", "mm3/s", "time spent (s)", r.FlowHist))
	}
	if len(r.LayerHeightHist) > 0 {
		page.AddCharts(histBar("Layer height distribution", "mm", "layers", r.LayerHeightHist))
	}
	if cmp != nil && len(cmp.Rows) > 0 {
		page.AddCharts(compareChart(cmp))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("%w: %w", ErrRenderingDashboard, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Report) timeChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Time per layer", Subtitle: "seconds per group, with running total"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "layer"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "s"}),
	)

	x := make([]string, 0, len(r.Groups))
	perLayer := make([]opts.LineData, 0, len(r.Groups))
	cumulative := make([]opts.LineData, 0, len(r.Groups))
	for _, g := range r.Groups {
		x = append(x, strconv.Itoa(g.Layer))
		perLayer = append(perLayer, opts.LineData{Value: g.TimeS})
		cumulative = append(cumulative, opts.LineData{Value: g.CumulativeTimeS})
	}

	line.SetXAxis(x).
		AddSeries("time", perLayer).
		AddSeries("cumulative", cumulative)
	return line
}

func (r *Report) speedChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Speed per layer", Subtitle: "time-weighted, mm/s"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "layer"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm/s"}),
	)

	x := make([]string, 0, len(r.Groups))
	mean := make([]opts.LineData, 0, len(r.Groups))
	p99 := make([]opts.LineData, 0, len(r.Groups))
	peak := make([]opts.LineData, 0, len(r.Groups))
	for _, g := range r.Groups {
		x = append(x, strconv.Itoa(g.Layer))
		mean = append(mean, opts.LineData{Value: g.MeanSpeedMMPerS})
		p99 = append(p99, opts.LineData{Value: g.P99SpeedMMPerS})
		peak = append(peak, opts.LineData{Value: g.PeakSpeedMMPerS})
	}

	var peakOpts []charts.SeriesOpts
	if lim := r.Limits.MaxSpeedMMPerS; lim != nil {
		peakOpts = append(peakOpts, charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "max speed", YAxis: *lim},
		))
	}

	line.SetXAxis(x).
		AddSeries("mean", mean).
		AddSeries("p99", p99).
		AddSeries("peak", peak, peakOpts...)
	return line
}

func (r *Report) flowChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Flow per layer", Subtitle: "volumetric, mm3/s"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "layer"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm3/s"}),
	)

	x := make([]string, 0, len(r.Groups))
	mean := make([]opts.LineData, 0, len(r.Groups))
	p99 := make([]opts.LineData, 0, len(r.Groups))
	peak := make([]opts.LineData, 0, len(r.Groups))
	for _, g := range r.Groups {
		x = append(x, strconv.Itoa(g.Layer))
		mean = append(mean, opts.LineData{Value: g.MeanFlowMM3PerS})
		p99 = append(p99, opts.LineData{Value: g.P99FlowMM3PerS})
		peak = append(peak, opts.LineData{Value: g.PeakFlowMM3PerS})
	}

	var peakOpts []charts.SeriesOpts
	if lim := r.Limits.MaxFlowMM3PerS; lim != nil {
		peakOpts = append(peakOpts, charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "max flow", YAxis: *lim},
		))
	}

	line.SetXAxis(x).
		AddSeries("mean", mean).
		AddSeries("p99", p99).
		AddSeries("peak", peak, peakOpts...)
	return line
}

func (r *Report) categoryPie() *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: pieWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Print time by category"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	data := make([]opts.PieData, 0, len(r.Categories))
	for _, c := range r.Categories {
		data = append(data, opts.PieData{Name: c.Category, Value: c.TimeS})
	}

	pie.AddSeries("print time", data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}))
	return pie
}

func histBar(title, xUnit, yName string, bins []HistogramBin) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xUnit}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)

	x := make([]string, 0, len(bins))
	data := make([]opts.BarData, 0, len(bins))
	for _, b := range bins {
		x = append(x, binLabel(b))
		data = append(data, opts.BarData{Value: b.Weight})
	}

	bar.SetXAxis(x).AddSeries(yName, data)
	return bar
}

func compareChart(cmp *Comparison) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Run vs baseline",
			Subtitle: fmt.Sprintf("time per aligned layer; total delta %+.1f s", cmp.TotalTimeDeltaS),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "z (mm)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "s"}),
	)

	x := make([]string, 0, len(cmp.Rows))
	run := make([]opts.LineData, 0, len(cmp.Rows))
	baseline := make([]opts.LineData, 0, len(cmp.Rows))
	for _, row := range cmp.Rows {
		x = append(x, strconv.FormatFloat(row.ZMM, 'f', -1, 64))
		run = append(run, opts.LineData{Value: row.TimeAS})
		baseline = append(baseline, opts.LineData{Value: row.TimeBS})
	}

	line.SetXAxis(x).
		AddSeries("run", run).
		AddSeries("baseline", baseline)
	return line
}

func binLabel(b HistogramBin) string {
	return fmt.Sprintf("%.4g-%.4g", b.Lo, b.Hi)
}
