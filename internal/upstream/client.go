// Package upstream is a thin HTTP façade over the two Polymarket REST
// surfaces: market discovery (Gamma) and order-book/health (CLOB). Every
// call gates on the rate limiter for its endpoint family before touching
// the network.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/pkg/metrics"
	"github.com/agentgate/agentgate/internal/ratelimit"
)

// Rate-limit categories per endpoint family.
const (
	CategoryMarkets   = "markets"
	CategoryOrderbook = "orderbook"
)

type Client struct {
	gammaBase  string
	clobBase   string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (tests inject an httptest one).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(cfg config.UpstreamConfig, limiter *ratelimit.Limiter, opts ...Option) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		gammaBase: cfg.GammaBaseURL,
		clobBase:  cfg.ClobBaseURL,
		limiter:   limiter,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListMarkets fetches markets matching the filter.
func (c *Client) ListMarkets(ctx context.Context, filter *MarketsFilter) ([]Market, error) {
	params := url.Values{}
	if filter != nil {
		if filter.Limit > 0 {
			params.Set("limit", strconv.Itoa(filter.Limit))
		}
		if filter.Offset > 0 {
			params.Set("offset", strconv.Itoa(filter.Offset))
		}
		if filter.Order != "" {
			params.Set("order", filter.Order)
		}
		if filter.Tag != "" {
			params.Set("tag", filter.Tag)
		}
		if filter.Active != nil {
			params.Set("active", strconv.FormatBool(*filter.Active))
		}
		if filter.Closed != nil {
			params.Set("closed", strconv.FormatBool(*filter.Closed))
		}
	}

	var markets []Market
	if err := c.get(ctx, CategoryMarkets, c.gammaBase, "/markets", params, &markets); err != nil {
		return nil, err
	}
	for i := range markets {
		if err := markets[i].Validate(); err != nil {
			return nil, err
		}
	}
	return markets, nil
}

// GetMarket fetches a single market. A 404 is a normal outcome surfaced
// as NotFound, not a fault.
func (c *Client) GetMarket(ctx context.Context, id string) (*Market, error) {
	if id == "" {
		return nil, apperrors.NewInvalidArgs("market id is required")
	}
	var market Market
	if err := c.get(ctx, CategoryMarkets, c.gammaBase, "/markets/"+url.PathEscape(id), nil, &market); err != nil {
		return nil, err
	}
	if err := market.Validate(); err != nil {
		return nil, err
	}
	return &market, nil
}

// GetOrderBook fetches the book for a token.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	if tokenID == "" {
		return nil, apperrors.NewInvalidArgs("token id is required")
	}
	params := url.Values{}
	params.Set("token_id", tokenID)

	var book OrderBook
	if err := c.get(ctx, CategoryOrderbook, c.clobBase, "/book", params, &book); err != nil {
		return nil, err
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}
	return &book, nil
}

// Ping checks CLOB liveness.
func (c *Client) Ping(ctx context.Context) error {
	var out map[string]any
	return c.get(ctx, CategoryOrderbook, c.clobBase, "/ping", nil, &out)
}

func (c *Client) get(ctx context.Context, category, base, path string, params url.Values, result any) error {
	family := familyOf(base, c.gammaBase)

	if !c.limiter.Allow(category) {
		metrics.UpstreamRequests.WithLabelValues(family, "rate_limited").Inc()
		return apperrors.NewRateLimit(category)
	}

	u := base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperrors.New(apperrors.ErrInternal, "create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			metrics.UpstreamRequests.WithLabelValues(family, "timeout").Inc()
			return apperrors.New(apperrors.ErrUpstreamTimeout,
				fmt.Sprintf("upstream request to %s timed out", path), err)
		}
		metrics.UpstreamRequests.WithLabelValues(family, "transport_error").Inc()
		return apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("upstream request to %s failed", path), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.UpstreamRequests.WithLabelValues(family, "not_found").Inc()
		return apperrors.NewNotFound(fmt.Sprintf("upstream resource %s not found", path))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.UpstreamRequests.WithLabelValues(family, "error").Inc()
		return apperrors.NewUpstream(resp.StatusCode,
			fmt.Sprintf("upstream error %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		metrics.UpstreamRequests.WithLabelValues(family, "bad_body").Inc()
		return apperrors.New(apperrors.ErrDataContract, "malformed upstream response body", err)
	}

	metrics.UpstreamRequests.WithLabelValues(family, "ok").Inc()
	return nil
}

func familyOf(base, gammaBase string) string {
	if base == gammaBase {
		return "gamma"
	}
	return "clob"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
