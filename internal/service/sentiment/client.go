package sentiment

import (
	"context"
	"fmt"
	"time"

	"MarketSage/internal/domain/models"
	domservice "MarketSage/internal/domain/service"
	pkghttp "MarketSage/pkg/http"
	"MarketSage/pkg/logger"
)

// Client scores recent news through an external sentiment endpoint.
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

type sentimentResponse struct {
	Symbol   string   `json:"symbol"`
	Score    float64  `json:"sentiment_score"`
	Summary  string   `json:"summary"`
	Factors  []string `json:"key_factors"`
	Articles int      `json:"articles_analyzed"`
}

// ScoreSymbol fetches a sentiment score for news published since the recency
// window began. No scored articles means no sentiment, not an error.
func (c *Client) ScoreSymbol(ctx context.Context, symbol string, recency time.Duration) (*models.SentimentScore, error) {
	from := time.Now().Add(-recency).UTC().Format("2006-01-02")
	var resp sentimentResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/news-sentiment",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"from":   {from},
			"token":  {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("sentiment %s: %w", symbol, err)
	}
	if resp.Articles == 0 {
		c.log.Debug("no scored articles", logger.String("symbol", symbol))
		return nil, nil
	}

	return &models.SentimentScore{
		Symbol:           symbol,
		Label:            labelFor(resp.Score),
		Score:            resp.Score,
		Summary:          resp.Summary,
		Factors:          resp.Factors,
		ArticlesAnalyzed: resp.Articles,
	}, nil
}

func labelFor(score float64) models.SentimentLabel {
	switch {
	case score > 0.6:
		return models.SentimentBullish
	case score < 0.4:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

var _ domservice.SentimentProvider = (*Client)(nil)
