package telegram

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uisBacktest/internal/backtest"
	"uisBacktest/internal/finance"
)

type recorder struct {
	mu     sync.Mutex
	texts  []string
	photos []tgbotapi.PhotoConfig
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		r.texts = append(r.texts, v.Text)
	case tgbotapi.PhotoConfig:
		r.photos = append(r.photos, v)
	}
	return tgbotapi.Message{}, nil
}

func (r *recorder) textCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

type fakeService struct {
	req finance.BacktestRequest
	err error
}

func points(ticker string, n int, base, amp, drift, period float64) []backtest.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]backtest.PricePoint, n)
	for i := range out {
		x := float64(i)
		out[i] = backtest.PricePoint{
			Date:   start.AddDate(0, 0, i),
			Ticker: ticker,
			Close:  base + drift*x + amp*math.Sin(2*math.Pi*x/period),
		}
	}
	return out
}

func (f *fakeService) Backtest(ctx context.Context, req finance.BacktestRequest) (*backtest.Result, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	r, err := backtest.NewRunner(req.Config, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	res, err := r.Run(ctx, points(req.TickerA, 90, 100, 4, 0.15, 17), points(req.TickerB, 90, 90, 2, -0.05, 11))
	if err != nil {
		return nil, err
	}
	res.TickerA, res.TickerB = req.TickerA, req.TickerB
	return res, nil
}

func (f *fakeService) Curve(_ context.Context, a, b string, window int, cfg backtest.MetricConfig) (*finance.CurveReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	pa, pb := points(a, window, 100, 4, 0.15, 17), points(b, window, 90, 2, -0.05, 11)
	alloc, err := backtest.Optimize(pa, pb, cfg)
	if err != nil {
		return nil, err
	}
	return &finance.CurveReport{
		TickerA: a, TickerB: b,
		From: pa[0].Date, To: pa[len(pa)-1].Date,
		Metric: cfg, Allocation: alloc,
		AloneA: alloc.Curve[10], AloneB: alloc.Curve[0],
	}, nil
}

type fakeAnalyst struct{ err error }

func (f fakeAnalyst) Explain(_ context.Context, report string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "commentary on " + strings.SplitN(report, "\n", 2)[0], nil
}

func defaults() finance.BacktestCommand {
	cfg := backtest.DefaultConfig()
	cfg.OptimizationWindow, cfg.AdvanceStep = 30, 10
	return finance.BacktestCommand{TickerA: "SPY", TickerB: "TLT", HistoryDays: 200, Config: cfg}
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}, From: &tgbotapi.User{ID: 7}}
}

func TestHandleBacktest(t *testing.T) {
	rec, svc := &recorder{}, &fakeService{}
	h := NewHandlers(rec, svc, fakeAnalyst{}, defaults(), zerolog.Nop())

	h.HandleMessage(message("/backtest gld qqq advance=15"))

	assert.Equal(t, "GLD", svc.req.TickerA)
	assert.Equal(t, "QQQ", svc.req.TickerB)
	assert.Equal(t, 15, svc.req.Config.AdvanceStep)
	assert.Equal(t, 200, svc.req.HistoryDays)

	require.Len(t, rec.texts, 3)
	assert.Contains(t, rec.texts[0], "Running walk-forward GLD/QQQ")
	assert.Contains(t, rec.texts[1], "Walk-forward GLD/QQQ")
	assert.Contains(t, rec.texts[1], "4 rebalances")
	assert.Equal(t, "commentary on Walk-forward GLD/QQQ", rec.texts[2])

	require.Len(t, rec.photos, 3)
	for _, p := range rec.photos {
		assert.Equal(t, int64(42), p.ChatID)
		assert.NotEmpty(t, p.File.(tgbotapi.FileBytes).Bytes)
	}
	assert.Equal(t, "GLD_QQQ_walkforward.png", rec.photos[0].File.(tgbotapi.FileBytes).Name)
}

func TestHandleBacktestErrors(t *testing.T) {
	t.Run("invalid command", func(t *testing.T) {
		rec, svc := &recorder{}, &fakeService{}
		NewHandlers(rec, svc, nil, defaults(), zerolog.Nop()).HandleMessage(message("/backtest SPY"))
		require.Len(t, rec.texts, 1)
		assert.Contains(t, rec.texts[0], "Invalid /backtest")
		assert.Empty(t, svc.req.TickerA)
	})
	t.Run("service error", func(t *testing.T) {
		rec := &recorder{}
		h := NewHandlers(rec, &fakeService{err: errors.New("no data")}, nil, defaults(), zerolog.Nop())
		h.HandleMessage(message("/backtest@uis_bot"))
		require.Len(t, rec.texts, 2)
		assert.Equal(t, "Backtest failed: no data", rec.texts[1])
		assert.Empty(t, rec.photos)
	})
	t.Run("commentary error is dropped", func(t *testing.T) {
		rec := &recorder{}
		h := NewHandlers(rec, &fakeService{}, fakeAnalyst{err: errors.New("quota")}, defaults(), zerolog.Nop())
		h.HandleMessage(message("/backtest"))
		assert.Len(t, rec.texts, 2)
		assert.Len(t, rec.photos, 3)
	})
}

func TestHandleCurve(t *testing.T) {
	rec := &recorder{}
	h := NewHandlers(rec, &fakeService{}, nil, defaults(), zerolog.Nop())

	h.HandleMessage(message("/curve SPY GLD window=40"))
	require.Len(t, rec.texts, 1)
	assert.Contains(t, rec.texts[0], "SPY/GLD 2024-01-01 → 2024-02-09")
	assert.Contains(t, rec.texts[0], "SPY alone:")
	assert.Contains(t, rec.texts[0], "Best split:")
	require.Len(t, rec.photos, 1)
	assert.Equal(t, "SPY_GLD_curve.png", rec.photos[0].File.(tgbotapi.FileBytes).Name)
}

func TestHandleHelpAndIgnored(t *testing.T) {
	rec := &recorder{}
	h := NewHandlers(rec, &fakeService{}, nil, defaults(), zerolog.Nop())

	h.HandleMessage(message("hello there"))
	h.HandleMessage(message("/backtesting"))
	assert.Empty(t, rec.texts)

	h.HandleMessage(message("/help"))
	h.HandleMessage(message("/start@uis_bot"))
	require.Len(t, rec.texts, 2)
	assert.Contains(t, rec.texts[0], "/backtest")
	assert.Contains(t, rec.texts[0], "Defaults: SPY TLT, window=30, advance=10, days=200, stddev^2.")
}

func TestWebhookHandler(t *testing.T) {
	rec := &recorder{}
	b := &Bot{h: NewHandlers(rec, &fakeService{}, nil, defaults(), zerolog.Nop()), logger: zerolog.Nop()}

	w := httptest.NewRecorder()
	b.WebhookHandler(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	b.WebhookHandler(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	body := []byte(`{"update_id":2,"message":{"message_id":1,"date":1700000000,"text":"/help","chat":{"id":42,"type":"private"},"from":{"id":7,"is_bot":false,"first_name":"x"}}}`)
	w = httptest.NewRecorder()
	b.WebhookHandler(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Eventually(t, func() bool { return rec.textCount() == 1 }, time.Second, 10*time.Millisecond)
}
