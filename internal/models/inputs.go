package models

import "time"

// NewsArticle represents a single news item supplied by a fetcher.
// Articles are immutable inputs; the pipeline never modifies them.
type NewsArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Publisher   string    `json:"publisher"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Topics      []string  `json:"topics,omitempty"`

	// Overall article sentiment, roughly -1 (bearish) to +1 (bullish).
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label,omitempty"`

	// Ticker-specific sentiment, populated when the feed scores the
	// article against a particular symbol.
	TickerSentimentScore *float64 `json:"ticker_sentiment_score,omitempty"`
	TickerSentimentLabel string   `json:"ticker_sentiment_label,omitempty"`
	TickerRelevance      *float64 `json:"ticker_relevance,omitempty"`
}

// PricePoint is one trading day of OHLCV data.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a sequence of daily price points. Feeds deliver it in
// either order; Normalize sorts it chronologically before use.
type PriceSeries []PricePoint

// Normalize returns the series sorted oldest-first. The receiver is not
// modified.
func (s PriceSeries) Normalize() PriceSeries {
	out := make(PriceSeries, len(s))
	copy(out, s)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Date.Before(out[j-1].Date); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Last returns the most recent n points of a normalized series.
func (s PriceSeries) Last(n int) PriceSeries {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
