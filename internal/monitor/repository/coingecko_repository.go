package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tradesignal/internal/monitor/config"
	"tradesignal/internal/monitor/dto"
	"tradesignal/pkg/logger"

	"golang.org/x/time/rate"
)

// PriceSourceRepository fetches the current price and 24h trend for one
// asset.
type PriceSourceRepository interface {
	Fetch(ctx context.Context, assetID string) (*dto.PriceQuote, error)
}

type coinGeckoRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewCoinGeckoRepository creates a PriceSourceRepository backed by the
// CoinGecko simple price API.
func NewCoinGeckoRepository(cfg *config.Config, log *logger.Logger) PriceSourceRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.CoinGecko.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	return &coinGeckoRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: cfg.CoinGecko.Timeout,
		},
		requestLimiter: requestLimiter,
	}
}

func (r *coinGeckoRepository) Fetch(ctx context.Context, assetID string) (*dto.PriceQuote, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: wait for request limit: %v", dto.ErrSourceUnavailable, err)
	}

	currency := r.cfg.Monitor.Currency
	params := url.Values{}
	params.Set("ids", assetID)
	params.Set("vs_currencies", currency)
	params.Set("include_24hr_change", "true")
	apiURL := r.cfg.CoinGecko.BaseURL + "/simple/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", dto.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", dto.ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	// {"bitcoin": {"usd": 63123.5, "usd_24h_change": -1.2}}
	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", dto.ErrMalformedResponse, err)
	}

	quote, ok := payload[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: no data for asset %s", dto.ErrMalformedResponse, assetID)
	}
	price, ok := quote[currency]
	if !ok || price <= 0 {
		return nil, fmt.Errorf("%w: missing %s price for asset %s", dto.ErrMalformedResponse, currency, assetID)
	}

	r.log.DebugContext(ctx, "Fetched price quote",
		logger.StringField("asset_id", assetID),
		logger.Float64Field("price", price),
	)

	return &dto.PriceQuote{
		AssetID:     assetID,
		Price:       price,
		Trend24hPct: quote[currency+"_24h_change"],
		ObservedAt:  time.Now().UTC(),
	}, nil
}
