// Package alphavantage provides a client for the Alpha Vantage news,
// sentiment, and daily time series APIs. It feeds the analysis pipeline;
// the core packages depend only on the shapes it returns.
package alphavantage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/tickerbrief/tickerbrief/internal/models"
)

const (
	DefaultEndpoint = "https://www.alphavantage.co/query"

	// Alpha Vantage publishes timestamps as 20251117T210641.
	publishedLayout = "20060102T150405"
)

// Client fetches news and price data from Alpha Vantage.
type Client struct {
	http   *resty.Client
	apiKey string
}

// NewClient creates an Alpha Vantage client.
func NewClient(apiKey string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(DefaultEndpoint).
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(1 * time.Second),
		apiKey: apiKey,
	}
}

// Feed response shapes.

type newsResponse struct {
	Feed []feedItem `json:"feed"`

	// Alpha Vantage reports errors in-band with 200 status.
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

type feedItem struct {
	Title                 string        `json:"title"`
	URL                   string        `json:"url"`
	TimePublished         string        `json:"time_published"`
	Summary               string        `json:"summary"`
	Source                string        `json:"source"`
	Topics                []topicRef    `json:"topics"`
	OverallSentimentScore float64       `json:"overall_sentiment_score"`
	OverallSentimentLabel string        `json:"overall_sentiment_label"`
	TickerSentiment       []tickerScore `json:"ticker_sentiment"`
}

type topicRef struct {
	Topic string `json:"topic"`
}

type tickerScore struct {
	Ticker         string `json:"ticker"`
	SentimentScore string `json:"ticker_sentiment_score"`
	SentimentLabel string `json:"ticker_sentiment_label"`
	RelevanceScore string `json:"relevance_score"`
}

// StockNews fetches recent news with sentiment for a ticker.
func (c *Client) StockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	return c.news(ctx, map[string]string{
		"function": "NEWS_SENTIMENT",
		"tickers":  ticker,
		"limit":    strconv.Itoa(limit * 2), // headroom for post-filtering
	}, ticker, limit)
}

// MarketNews fetches broad market and macroeconomic news, optionally
// filtered by topics such as economy_macro or technology.
func (c *Client) MarketNews(ctx context.Context, topics []string, limit int) ([]models.NewsArticle, error) {
	params := map[string]string{
		"function": "NEWS_SENTIMENT",
		"limit":    strconv.Itoa(limit),
	}
	if len(topics) > 0 {
		params["topics"] = strings.Join(topics, ",")
	}
	return c.news(ctx, params, "", limit)
}

func (c *Client) news(ctx context.Context, params map[string]string, ticker string, limit int) ([]models.NewsArticle, error) {
	params["apikey"] = c.apiKey

	var body newsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch news: status %d", resp.StatusCode())
	}
	if msg := body.apiError(); msg != "" {
		return nil, fmt.Errorf("alpha vantage: %s", msg)
	}

	articles := make([]models.NewsArticle, 0, limit)
	for _, item := range body.Feed {
		if len(articles) >= limit {
			break
		}
		articles = append(articles, item.toArticle(ticker))
	}

	log.Debug().Str("ticker", ticker).Int("articles", len(articles)).Msg("Fetched news")
	return articles, nil
}

func (r *newsResponse) apiError() string {
	switch {
	case r.ErrorMessage != "":
		return r.ErrorMessage
	case r.Note != "":
		return r.Note
	case r.Information != "":
		return r.Information
	}
	return ""
}

func (item feedItem) toArticle(ticker string) models.NewsArticle {
	a := models.NewsArticle{
		Title:          item.Title,
		Summary:        item.Summary,
		Publisher:      item.Source,
		URL:            item.URL,
		SentimentScore: item.OverallSentimentScore,
		SentimentLabel: item.OverallSentimentLabel,
	}
	if t, err := time.Parse(publishedLayout, item.TimePublished); err == nil {
		a.PublishedAt = t
	}
	for _, topic := range item.Topics {
		a.Topics = append(a.Topics, topic.Topic)
	}
	if ticker != "" {
		for _, ts := range item.TickerSentiment {
			if ts.Ticker != ticker {
				continue
			}
			if score, err := strconv.ParseFloat(ts.SentimentScore, 64); err == nil {
				a.TickerSentimentScore = &score
			}
			a.TickerSentimentLabel = ts.SentimentLabel
			if rel, err := strconv.ParseFloat(ts.RelevanceScore, 64); err == nil {
				a.TickerRelevance = &rel
			}
			break
		}
	}
	return a
}

// Time series response shapes. OHLCV values arrive as strings.

type seriesResponse struct {
	Series map[string]seriesBar `json:"Time Series (Daily)"`

	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

type seriesBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// DailySeries fetches the recent daily OHLCV series for a ticker, sorted
// chronologically.
func (c *Client) DailySeries(ctx context.Context, ticker string) (models.PriceSeries, error) {
	var body seriesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": "compact",
			"apikey":     c.apiKey,
		}).
		SetResult(&body).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("fetch series: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch series: status %d", resp.StatusCode())
	}
	switch {
	case body.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage: %s", body.ErrorMessage)
	case body.Note != "":
		return nil, fmt.Errorf("alpha vantage: %s", body.Note)
	case body.Information != "":
		return nil, fmt.Errorf("alpha vantage: %s", body.Information)
	}

	series := make(models.PriceSeries, 0, len(body.Series))
	for dateStr, bar := range body.Series {
		date, err := time.Parse(models.DateFormat, dateStr)
		if err != nil {
			continue
		}
		p := models.PricePoint{Date: date}
		p.Open, _ = strconv.ParseFloat(bar.Open, 64)
		p.High, _ = strconv.ParseFloat(bar.High, 64)
		p.Low, _ = strconv.ParseFloat(bar.Low, 64)
		p.Close, _ = strconv.ParseFloat(bar.Close, 64)
		p.Volume, _ = strconv.ParseInt(bar.Volume, 10, 64)
		series = append(series, p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	log.Debug().Str("ticker", ticker).Int("points", len(series)).Msg("Fetched daily series")
	return series, nil
}
