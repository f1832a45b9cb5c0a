// Package format turns raw news and price records into flat text blocks
// suitable for a generation request.
package format

import (
	"fmt"
	"strings"

	"github.com/tickerbrief/tickerbrief/internal/models"
)

// DefaultPricePoints is how many recent trading days the price formatter
// includes by default.
const DefaultPricePoints = 5

// News formats articles into a readable block. An empty ticker labels the
// block as market news.
func News(articles []models.NewsArticle, ticker string) string {
	if len(articles) == 0 {
		return "No news articles available."
	}

	var b strings.Builder
	if ticker != "" {
		fmt.Fprintf(&b, "=== News Articles for %s ===\n\n", ticker)
	} else {
		b.WriteString("=== News Articles (Market News) ===\n\n")
	}

	for i, a := range articles {
		fmt.Fprintf(&b, "Article %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", a.Title)
		fmt.Fprintf(&b, "Publisher: %s\n", a.Publisher)
		fmt.Fprintf(&b, "Published: %s\n", a.PublishedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "Summary: %s\n", a.Summary)
		if len(a.Topics) > 0 {
			fmt.Fprintf(&b, "Topics: %s\n", strings.Join(a.Topics, ", "))
		}
		if a.SentimentLabel != "" {
			fmt.Fprintf(&b, "Overall Sentiment: %s (Score: %.4f)\n", a.SentimentLabel, a.SentimentScore)
		}
		if a.TickerSentimentScore != nil {
			fmt.Fprintf(&b, "Ticker Sentiment: %s (Score: %.4f)\n", a.TickerSentimentLabel, *a.TickerSentimentScore)
		}
		if a.TickerRelevance != nil {
			fmt.Fprintf(&b, "Relevance Score: %.4f\n", *a.TickerRelevance)
		}
		if a.URL != "" {
			fmt.Fprintf(&b, "Link: %s\n", a.URL)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Prices formats the last n trading points of a series, with each point's
// close change relative to the previous point, plus a whole-window change
// line. The series is normalized to chronological order first.
func Prices(series models.PriceSeries, ticker string, n int) string {
	if len(series) == 0 {
		return fmt.Sprintf("No price data available for %s.", ticker)
	}
	if n <= 0 {
		n = DefaultPricePoints
	}

	sorted := series.Normalize()
	window := sorted.Last(n)

	var b strings.Builder
	fmt.Fprintf(&b, "=== Recent Price Data for %s ===\n\n", ticker)

	for i, p := range window {
		fmt.Fprintf(&b, "Date: %s\n", p.Date.Format(models.DateFormat))
		fmt.Fprintf(&b, "  Open:   $%.2f\n", p.Open)
		fmt.Fprintf(&b, "  High:   $%.2f\n", p.High)
		fmt.Fprintf(&b, "  Low:    $%.2f\n", p.Low)
		fmt.Fprintf(&b, "  Close:  $%.2f\n", p.Close)
		fmt.Fprintf(&b, "  Volume: %d\n", p.Volume)
		if i > 0 && window[i-1].Close != 0 {
			pct := (p.Close - window[i-1].Close) / window[i-1].Close * 100
			fmt.Fprintf(&b, "  Change: %+.2f%%\n", pct)
		}
		b.WriteString("\n")
	}

	if len(window) >= 2 && window[0].Close != 0 {
		first, last := window[0].Close, window[len(window)-1].Close
		change := last - first
		fmt.Fprintf(&b, "Price Change (Last %d days): $%.2f (%+.2f%%)",
			len(window), change, change/first*100)
	}

	return strings.TrimRight(b.String(), "\n")
}
