package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"uisBacktest/internal/backtest"
	"uisBacktest/internal/finance"
)

var (
	// /backtest [A B] [key=value ...]
	reBacktest = regexp.MustCompile(`^/backtest(?:@[\w_]+)?(?:\s+.*)?$`)
	// /curve [A B] [window=N] [factor=X] [dispersion=stddev|ulcer] [ulcer=N]
	reCurve = regexp.MustCompile(`^/curve(?:@[\w_]+)?(?:\s+.*)?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// recentSteps is how many rebalances the text report lists.
const recentSteps = 5

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Backtester runs backtests and single-window optimizations; *finance.Service implements it.
type Backtester interface {
	Backtest(ctx context.Context, req finance.BacktestRequest) (*backtest.Result, error)
	Curve(ctx context.Context, tickerA, tickerB string, window int, cfg backtest.MetricConfig) (*finance.CurveReport, error)
}

// Explainer comments on a text report; *openai.Analyst implements it.
type Explainer interface {
	Explain(ctx context.Context, report string) (string, error)
}

type Handlers struct {
	api      sender
	svc      Backtester
	analyst  Explainer
	defaults finance.BacktestCommand
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewHandlers wires the command handlers. analyst may be nil to skip commentary.
func NewHandlers(api sender, svc Backtester, analyst Explainer, defaults finance.BacktestCommand, logger zerolog.Logger) *Handlers {
	return &Handlers{
		api:      api,
		svc:      svc,
		analyst:  analyst,
		defaults: defaults,
		timeout:  3 * time.Minute,
		logger:   logger,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reBacktest.MatchString(txt):
		cmd, err := finance.ParseBacktestCommand(txt, h.defaults)
		if err != nil {
			h.reply(m.Chat.ID, "Invalid /backtest: "+err.Error()+"\nSee /help")
			return
		}
		h.reply(m.Chat.ID, fmt.Sprintf("Running walk-forward %s/%s over %d sessions…", cmd.TickerA, cmd.TickerB, cmd.HistoryDays))
		h.handleBacktest(m.Chat.ID, cmd)

	case reCurve.MatchString(txt):
		cmd, err := finance.ParseBacktestCommand(txt, h.defaults)
		if err != nil {
			h.reply(m.Chat.ID, "Invalid /curve: "+err.Error()+"\nSee /help")
			return
		}
		h.handleCurve(m.Chat.ID, cmd)

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) handleBacktest(chatID int64, cmd finance.BacktestCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	res, err := h.svc.Backtest(ctx, finance.BacktestRequest{
		TickerA:     cmd.TickerA,
		TickerB:     cmd.TickerB,
		HistoryDays: cmd.HistoryDays,
		Config:      cmd.Config,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("a", cmd.TickerA).Str("b", cmd.TickerB).Msg("backtest failed")
		h.reply(chatID, "Backtest failed: "+err.Error())
		return
	}
	report := backtest.FormatResult(res, recentSteps)
	h.reply(chatID, report)
	if len(res.Steps) == 0 {
		return
	}

	name := res.TickerA + "_" + res.TickerB
	if img, err := finance.MakeTrajectoryChart(res); err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
	} else {
		h.sendPhoto(chatID, name+"_walkforward.png", img, finance.Caption(res))
	}
	if img, err := finance.MakeAllocationChart(res); err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
	} else {
		h.sendPhoto(chatID, name+"_allocation.png", img, res.TickerA+" share at each rebalance")
	}

	last := res.Steps[len(res.Steps)-1]
	rep := &finance.CurveReport{
		TickerA:    res.TickerA,
		TickerB:    res.TickerB,
		From:       last.From,
		To:         last.To,
		Metric:     res.Config.Metric,
		Allocation: backtest.Allocation{Best: last.Best, Curve: last.Curve},
	}
	if img, err := finance.MakeCurveChart(rep); err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
	} else {
		h.sendPhoto(chatID, name+"_curve.png", img, "Latest window • "+last.Best.String())
	}

	if h.analyst == nil {
		return
	}
	out, err := h.analyst.Explain(ctx, report)
	if err != nil {
		h.logger.Warn().Err(err).Msg("commentary failed")
		return
	}
	h.reply(chatID, out)
}

func (h *Handlers) handleCurve(chatID int64, cmd finance.BacktestCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	rep, err := h.svc.Curve(ctx, cmd.TickerA, cmd.TickerB, cmd.Config.OptimizationWindow, cmd.Config.Metric)
	if err != nil {
		h.reply(chatID, "Curve failed: "+err.Error())
		return
	}
	h.reply(chatID, finance.FormatCurveReport(rep))

	img, err := finance.MakeCurveChart(rep)
	if err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
		return
	}
	h.sendPhoto(chatID, rep.TickerA+"_"+rep.TickerB+"_curve.png", img,
		fmt.Sprintf("%s/%s • %s", rep.TickerA, rep.TickerB, rep.Allocation.Best))
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /backtest [A B] [window=N] [advance=N] [days=N] [factor=X] [dispersion=stddev|ulcer] [ulcer=N] - Walk-forward A/B allocation backtest\n" +
		"- /curve [A B] [window=N] [factor=X] [dispersion=stddev|ulcer] [ulcer=N] - Score every split over the latest window\n" +
		fmt.Sprintf("\nDefaults: %s %s, window=%d, advance=%d, days=%d, %s^%g.",
			h.defaults.TickerA, h.defaults.TickerB,
			h.defaults.Config.OptimizationWindow, h.defaults.Config.AdvanceStep, h.defaults.HistoryDays,
			h.defaults.Config.Metric.Dispersion, h.defaults.Config.Metric.VolatilityFactor) +
		"\nEach rebalance picks the split with the best return/dispersion^factor over the window and holds it for the advance."
	h.reply(chatID, help)
}

func (h *Handlers) sendPhoto(chatID int64, name string, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = caption
	if _, err := h.api.Send(photo); err != nil {
		h.logger.Warn().Err(err).Str("photo", name).Msg("send failed")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}
