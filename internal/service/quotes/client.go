package quotes

import (
	"context"
	"fmt"

	domservice "MarketSage/internal/domain/service"
	pkghttp "MarketSage/pkg/http"
	"MarketSage/pkg/logger"
)

// Client fetches current prices from a Finnhub-style quote endpoint.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

func New(httpClient *pkghttp.Client, baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

type quoteResponse struct {
	Current float64 `json:"c"`
}

// CurrentPrice returns the latest quote. A zero quote means the upstream has
// no data for the symbol; callers keep their records pending in that case.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, bool, error) {
	var quote quoteResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {c.apiKey},
		},
	}, &quote)
	if err != nil {
		return 0, false, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if quote.Current <= 0 {
		c.log.Debug("no quote for symbol", logger.String("symbol", symbol))
		return 0, false, nil
	}
	return quote.Current, true, nil
}

var _ domservice.PriceLookup = (*Client)(nil)
