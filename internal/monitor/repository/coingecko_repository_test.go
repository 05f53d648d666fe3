package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradesignal/internal/monitor/config"
	"tradesignal/internal/monitor/dto"
	"tradesignal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoinGeckoFixture(t *testing.T, handler http.HandlerFunc) PriceSourceRepository {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Monitor.Currency = "usd"
	cfg.CoinGecko.BaseURL = srv.URL
	cfg.CoinGecko.MaxRequestPerMinute = 600
	cfg.CoinGecko.Timeout = time.Second

	return NewCoinGeckoRepository(cfg, log)
}

func TestCoinGeckoFetchSuccess(t *testing.T) {
	repo := newCoinGeckoFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 63123.5, "usd_24h_change": -1.2}}`))
	})

	quote, err := repo.Fetch(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", quote.AssetID)
	assert.Equal(t, 63123.5, quote.Price)
	assert.Equal(t, -1.2, quote.Trend24hPct)
	assert.False(t, quote.ObservedAt.IsZero())
}

func TestCoinGeckoFetchServerError(t *testing.T) {
	repo := newCoinGeckoFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := repo.Fetch(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, dto.ErrSourceUnavailable)
}

func TestCoinGeckoFetchMissingAsset(t *testing.T) {
	repo := newCoinGeckoFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := repo.Fetch(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, dto.ErrMalformedResponse)
}

func TestCoinGeckoFetchRejectsNonPositivePrice(t *testing.T) {
	repo := newCoinGeckoFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 0}}`))
	})

	_, err := repo.Fetch(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, dto.ErrMalformedResponse)
}

func TestCoinGeckoFetchUndecodableBody(t *testing.T) {
	repo := newCoinGeckoFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := repo.Fetch(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, dto.ErrMalformedResponse)
}

func TestBuildAlertJudgmentPromptIncludesContext(t *testing.T) {
	prompt := BuildAlertJudgmentPrompt(&dto.OracleContext{
		AssetID:     "bitcoin",
		Price:       63000,
		PctChange:   4.5,
		Trend24hPct: 2.1,
		PeerDeltas: []dto.PriceDelta{
			{AssetID: "ethereum", CurrentPrice: 3400, PctChange: 3.8, Trend24hPct: 1.9},
		},
		FeedbackHistory: []dto.FeedbackRecord{
			{Feedback: "positive"},
			{Feedback: "none"},
		},
	})

	assert.Contains(t, prompt, "Bitcoin")
	assert.Contains(t, prompt, "Ethereum")
	assert.Contains(t, prompt, "Helpful: 1")
	assert.Contains(t, prompt, "No response yet: 1")
	assert.Contains(t, prompt, `"should_alert"`)
}

func TestBuildAlertJudgmentPromptWithoutHistory(t *testing.T) {
	prompt := BuildAlertJudgmentPrompt(&dto.OracleContext{AssetID: "solana", Price: 150, PctChange: -5})
	assert.Contains(t, prompt, "No previous feedback available.")
}
