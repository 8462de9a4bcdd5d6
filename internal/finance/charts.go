package finance

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"uisBacktest/internal/backtest"
)

// MakeCurveChart plots the metric of every split over the latest window, with the dispersion
// scaled by ten on the right axis.
func MakeCurveChart(rep *CurveReport) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("no curve to chart")
	}
	cacheKey := curveKey(rep)
	if img, found := cacheGet(cacheKey); found {
		return img, nil
	}

	xLabels := make([]string, 0, backtest.GridSize)
	ratios := make([]float64, 0, backtest.GridSize)
	disps := make([]float64, 0, backtest.GridSize)
	for _, s := range rep.Allocation.Curve {
		xLabels = append(xLabels, fmt.Sprintf("%d%%", int(s.Step)*10))
		ratios = append(ratios, s.Ratio)
		disps = append(disps, s.Dispersion*10)
	}
	names := []string{"ratio", string(rep.Metric.Dispersion) + " ×10"}

	seriesList := charts.NewSeriesListDataFromValues([][]float64{ratios, disps}, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = i
	}
	leftMin, leftMax := paddedRange(ratios)
	rightMin, rightMax := paddedRange(disps)

	title := fmt.Sprintf("%s share of %s/%s • best %s", rep.TickerA, rep.TickerA, rep.TickerB, rep.Allocation.Best)
	subtitle := fmt.Sprintf("%s → %s • return/%s^%g", rep.From.Format(time.DateOnly), rep.To.Format(time.DateOnly),
		rep.Metric.Dispersion, rep.Metric.VolatilityFactor)

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag()}),
		charts.YAxisOptionFunc(
			charts.YAxisOption{Min: &leftMin, Max: &leftMax, DivideCount: 5},
			charts.YAxisOption{Min: &rightMin, Max: &rightMax, DivideCount: 5, Position: charts.PositionRight},
		),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	cacheSet(cacheKey, buf)
	return buf, nil
}

// MakeTrajectoryChart plots the growth of 100 in the walk-forward portfolio and in each asset.
func MakeTrajectoryChart(res *backtest.Result) ([]byte, error) {
	if res == nil || len(res.Steps) == 0 {
		return nil, fmt.Errorf("no iterations to chart")
	}
	cacheKey := "trajectory-" + resultKey(res)
	if img, found := cacheGet(cacheKey); found {
		return img, nil
	}

	traj := res.Trajectory()
	dates := make([]time.Time, 0, len(traj))
	dates = append(dates, res.HorizonStart)
	for _, s := range res.Steps {
		dates = append(dates, s.Until)
	}
	xLabels := dateLabels(dates)

	port := make([]float64, len(traj))
	a := make([]float64, len(traj))
	b := make([]float64, len(traj))
	for i, r := range traj {
		port[i], a[i], b[i] = r.Portfolio*100, r.A*100, r.B*100
	}
	names := []string{"Walk-forward", res.TickerA, res.TickerB}
	yMin, yMax := paddedRange(port, a, b)

	subtitle := fmt.Sprintf("Return: %.2f%% vs %s %.2f%% / %s %.2f%%",
		(res.Final.Portfolio-1)*100, res.TickerA, (res.Final.A-1)*100, res.TickerB, (res.Final.B-1)*100)
	if stats, _, _, err := ResultStats(res); err == nil {
		subtitle += fmt.Sprintf(" | Sharpe: %.2f | MaxDD: %.2f%%", stats.SharpeRatio, stats.MaxDrawdown)
	}

	p, err := charts.LineRender(
		[][]float64{port, a, b},
		charts.TitleTextOptionFunc(fmt.Sprintf("Walk-forward %s/%s", res.TickerA, res.TickerB), subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	cacheSet(cacheKey, buf)
	return buf, nil
}

// MakeAllocationChart plots the share of A chosen at every rebalance.
func MakeAllocationChart(res *backtest.Result) ([]byte, error) {
	if res == nil || len(res.Steps) == 0 {
		return nil, fmt.Errorf("no iterations to chart")
	}
	cacheKey := "allocation-" + resultKey(res)
	if img, found := cacheGet(cacheKey); found {
		return img, nil
	}

	dates := make([]time.Time, len(res.Steps))
	shares := make([]float64, len(res.Steps))
	for i, s := range res.Steps {
		dates[i] = s.To
		shares[i] = float64(s.Best) * 10
	}
	xLabels := dateLabels(dates)
	yMin, yMax := 0.0, 100.0

	p, err := charts.BarRender(
		[][]float64{shares},
		charts.TitleTextOptionFunc(fmt.Sprintf("%s share of %s/%s (%%)", res.TickerA, res.TickerA, res.TickerB)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, SplitNumber: splitNumber(len(xLabels))}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	cacheSet(cacheKey, buf)
	return buf, nil
}

// curveKey identifies a curve chart by its window and every plotted value.
func curveKey(rep *CurveReport) string {
	h := fnv.New64a()
	for _, s := range rep.Allocation.Curve {
		fmt.Fprintf(h, "%d:%x:%x;", s.Step, math.Float64bits(s.Ratio), math.Float64bits(s.Dispersion))
	}
	return fmt.Sprintf("curve-%s-%s-%s-%s-%s-%s-%g-%d-%x", rep.TickerA, rep.TickerB,
		rep.From.Format(time.DateOnly), rep.To.Format(time.DateOnly), rep.Allocation.Best,
		rep.Metric.Dispersion, rep.Metric.VolatilityFactor, rep.Metric.UlcerWindow, h.Sum64())
}

func resultKey(res *backtest.Result) string {
	c := res.Config
	return fmt.Sprintf("%s-%s-%s-%s-%d-%d-%s-%g-%d", res.TickerA, res.TickerB,
		res.HorizonStart.Format(time.DateOnly), res.HorizonEnd.Format(time.DateOnly),
		c.OptimizationWindow, c.AdvanceStep, c.Metric.Dispersion, c.Metric.VolatilityFactor, c.Metric.UlcerWindow)
}

// dateLabels formats axis labels by span: day labels up to about a quarter, months beyond.
func dateLabels(dates []time.Time) []string {
	layout := "Jan '06"
	if len(dates) > 1 && dates[len(dates)-1].Sub(dates[0]) <= 100*24*time.Hour {
		layout = "Jan 02"
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(layout)
	}
	return out
}

func splitNumber(n int) int {
	if n <= 30 {
		return max(3, n/3)
	}
	return 6
}

// paddedRange returns the min and max over all series widened by 5% of the span.
func paddedRange(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) {
		return 0, 1
	}
	padding := (hi - lo) * 0.05
	if padding == 0 {
		padding = math.Abs(hi) * 0.05
	}
	if padding == 0 {
		padding = 1
	}
	return lo - padding, hi + padding
}

// Caption is a one-line photo caption for a run.
func Caption(res *backtest.Result) string {
	return strings.Join([]string{
		res.TickerA + "/" + res.TickerB,
		fmt.Sprintf("%dd window", res.Config.OptimizationWindow),
		fmt.Sprintf("%dd advance", res.Config.AdvanceStep),
		strings.ToUpper(string(res.Config.Metric.Dispersion)),
	}, " • ")
}
