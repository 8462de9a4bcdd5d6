package finance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"uisBacktest/internal/backtest"
)

// TrajectoryStats summarizes one compounded value path.
type TrajectoryStats struct {
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64 // Total return as percentage
	AnnualReturn float64 // Annualized return
	Volatility   float64 // Annualized volatility of per-period returns
	SharpeRatio  float64 // Risk-free rate assumed to be 0
	MaxDrawdown  float64 // Maximum drawdown as percentage
	Periods      int
}

// ResultStats computes stats for the portfolio, A and B trajectories of a run. Each period
// spans the advance step, so a year holds 253/advance periods.
func ResultStats(res *backtest.Result) (portfolio, a, b *TrajectoryStats, err error) {
	traj := res.Trajectory()
	pv := make([]float64, len(traj))
	av := make([]float64, len(traj))
	bv := make([]float64, len(traj))
	for i, r := range traj {
		pv[i], av[i], bv[i] = r.Portfolio, r.A, r.B
	}
	perYear := float64(tradingDaysPerYear) / float64(res.Config.AdvanceStep)
	if portfolio, err = CalculateTrajectoryStats(pv, perYear); err != nil {
		return nil, nil, nil, fmt.Errorf("portfolio: %w", err)
	}
	if a, err = CalculateTrajectoryStats(av, perYear); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", res.TickerA, err)
	}
	if b, err = CalculateTrajectoryStats(bv, perYear); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", res.TickerB, err)
	}
	return portfolio, a, b, nil
}

// CalculateTrajectoryStats computes return, volatility, Sharpe and drawdown of values sampled
// periodsPerYear times a year.
func CalculateTrajectoryStats(values []float64, periodsPerYear float64) (*TrajectoryStats, error) {
	if len(values) < 3 {
		return nil, fmt.Errorf("need at least 2 return observations for statistics")
	}
	initialValue := values[0]
	finalValue := values[len(values)-1]
	if !(initialValue > 0) {
		return nil, fmt.Errorf("invalid initial value: %f", initialValue)
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if !(values[i-1] > 0) {
			return nil, fmt.Errorf("invalid value at period %d: %f", i-1, values[i-1])
		}
		returns[i-1] = (values[i] - values[i-1]) / values[i-1]
	}
	_, periodVol := stat.MeanStdDev(returns, nil)

	totalReturn := (finalValue - initialValue) / initialValue
	years := float64(len(returns)) / periodsPerYear
	var annualReturn float64
	if years > 0 && finalValue > 0 {
		// Geometric annualization: (1 + total_return)^(1/years) - 1
		annualReturn = math.Pow(finalValue/initialValue, 1/years) - 1
	}
	annualVol := periodVol * math.Sqrt(periodsPerYear)
	var sharpe float64
	if annualVol > 0 {
		sharpe = annualReturn / annualVol
	}

	stats := &TrajectoryStats{
		InitialValue: initialValue,
		FinalValue:   finalValue,
		TotalReturn:  totalReturn * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVol * 100,
		SharpeRatio:  sharpe,
		MaxDrawdown:  calculateMaxDrawdown(values) * 100,
		Periods:      len(returns),
	}
	for name, v := range map[string]float64{
		"total return":  stats.TotalReturn,
		"annual return": stats.AnnualReturn,
		"volatility":    stats.Volatility,
		"Sharpe ratio":  stats.SharpeRatio,
		"max drawdown":  stats.MaxDrawdown,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

// calculateMaxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
func calculateMaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	maxDrawdown := 0.0
	peak := values[0]
	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 && value >= 0 {
			if dd := (peak - value) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}
