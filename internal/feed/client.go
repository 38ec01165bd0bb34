package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"coinwatch-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const marketsPath = "/coins/markets"

// MarketRecord is one row of the provider's market listing response.
type MarketRecord struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Image             string    `json:"image"`
	CurrentPrice      float64   `json:"current_price"`
	MarketCap         float64   `json:"market_cap"`
	MarketCapRank     int       `json:"market_cap_rank"`
	TotalVolume       float64   `json:"total_volume"`
	High24h           float64   `json:"high_24h"`
	Low24h            float64   `json:"low_24h"`
	PriceChange24h    float64   `json:"price_change_percentage_24h_in_currency"`
	PriceChange7d     float64   `json:"price_change_percentage_7d_in_currency"`
	PriceChange30d    float64   `json:"price_change_percentage_30d_in_currency"`
	CirculatingSupply float64   `json:"circulating_supply"`
	TotalSupply       float64   `json:"total_supply"`
	MaxSupply         float64   `json:"max_supply"`
	AllTimeHigh       float64   `json:"ath"`
	AllTimeHighDate   time.Time `json:"ath_date"`
	AllTimeLow        float64   `json:"atl"`
	AllTimeLowDate    time.Time `json:"atl_date"`
	LastUpdated       time.Time `json:"last_updated"`
}

// PageFetcher defines the interface for the market-data feed client.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageIndex, pageSize int) ([]MarketRecord, error)
}

// Client fetches paginated market listings from the external provider.
// It is stateless across calls: the same page can be re-requested and no
// cursor is retained.
type Client struct {
	client     *resty.Client
	governor   *Governor
	logger     *zap.Logger
	currency   string
	timeout    time.Duration
	retryCount int
	// base interval for the linear backoff between retries
	backoffBase time.Duration
}

// ensure Client implements the interface
var _ PageFetcher = (*Client)(nil)

// NewClient creates a feed client. Every call is gated by the shared
// governor before it goes out.
func NewClient(cfg *config.Feed, governor *Governor, logger *zap.Logger) *Client {
	return &Client{
		client:      resty.New().SetBaseURL(cfg.BaseURL),
		governor:    governor,
		logger:      logger,
		currency:    cfg.Currency,
		timeout:     cfg.Timeout(),
		retryCount:  cfg.RetryCount,
		backoffBase: time.Second,
	}
}

// FetchPage requests one page of the market listing, top-ranked by
// market cap. Transient failures are retried up to the configured
// budget with a linear backoff (attempt number times the base
// interval); a 429 honors the provider's Retry-After instead. Once the
// budget is exhausted the last classified error surfaces to the caller.
func (c *Client) FetchPage(ctx context.Context, pageIndex, pageSize int) ([]MarketRecord, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryCount; attempt++ {
		if err := c.governor.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("rate governor wait failed: %w", err)
		}

		records, retryAfter, err := c.fetchOnce(ctx, pageIndex, pageSize)
		if err == nil {
			return records, nil
		}
		lastErr = err

		// The owning sync run was aborted; stop immediately.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("page fetch aborted: %w", ctx.Err())
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(attempt) * c.backoffBase
		}
		c.logger.Warn("Feed call failed, retrying",
			zap.Int("page", pageIndex),
			zap.Int("attempt", attempt),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, fmt.Errorf("page fetch aborted: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("page %d failed after %d attempts: %w", pageIndex, c.retryCount, lastErr)
}

// fetchOnce performs a single gated call and classifies its outcome.
func (c *Client) fetchOnce(ctx context.Context, pageIndex, pageSize int) ([]MarketRecord, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var records []MarketRecord
	resp, err := c.client.R().
		SetContext(callCtx).
		SetQueryParams(map[string]string{
			"vs_currency":             c.currency,
			"order":                   "market_cap_desc",
			"per_page":                strconv.Itoa(pageSize),
			"page":                    strconv.Itoa(pageIndex),
			"sparkline":               "false",
			"price_change_percentage": "24h,7d,30d",
		}).
		SetResult(&records).
		Get(marketsPath)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, 0, fmt.Errorf("%w: %v", ErrFeedTimeout, err)
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	if resp.IsError() {
		status := resp.StatusCode()
		if status == http.StatusTooManyRequests {
			var retryAfter time.Duration
			if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
			return nil, retryAfter, fmt.Errorf("%w: status %s", ErrFeedRateLimited, resp.Status())
		}
		return nil, 0, fmt.Errorf("%w: status %s", ErrFeedUnavailable, resp.Status())
	}

	return records, 0, nil
}
