package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerbrief/tickerbrief/internal/llm"
	"github.com/tickerbrief/tickerbrief/internal/models"
)

// fakeGenerator records every request and answers from a canned function.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.GenerateRequest
	respond  func(req llm.GenerateRequest) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	return "generated: " + firstLine(req.User), nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func sampleNews(n int) []models.NewsArticle {
	articles := make([]models.NewsArticle, n)
	for i := range articles {
		articles[i] = models.NewsArticle{
			Title:          "Quarterly results beat expectations",
			Summary:        "Revenue and margins both came in ahead of guidance.",
			Publisher:      "Newswire",
			PublishedAt:    time.Date(2024, 1, 2+i, 9, 30, 0, 0, time.UTC),
			SentimentScore: 0.4,
			SentimentLabel: "Bullish",
		}
	}
	return articles
}

func samplePrices(n int) models.PriceSeries {
	series := make(models.PriceSeries, n)
	for i := range series {
		series[i] = models.PricePoint{
			Date:   time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC),
			Open:   100 + float64(i),
			High:   102 + float64(i),
			Low:    99 + float64(i),
			Close:  101 + float64(i),
			Volume: 1_000_000,
		}
	}
	return series
}

func TestRunDailyProducesAllSections(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(gen, 0.3)

	rec, err := p.RunDaily(context.Background(), "AAPL", sampleNews(3), samplePrices(6), sampleNews(2))
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisDaily, rec.Type)
	assert.Equal(t, "AAPL", rec.Ticker)
	assert.Equal(t, 3, rec.ArticleCount)

	require.Len(t, rec.Sections, 4)
	for _, key := range []string{
		models.SectionNewsSummary,
		models.SectionPriceAnalysis,
		models.SectionMarketContext,
		models.SectionFinalSummary,
	} {
		assert.NotEmpty(t, rec.Sections[key], "section %s", key)
	}
	assert.Equal(t, rec.Sections[models.SectionFinalSummary], rec.Body)

	// news, price, market context, synthesis
	assert.Equal(t, 4, gen.calls())
	require.NoError(t, rec.Validate())
}

func TestRunDailyEmptyPricesSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(gen, 0.3)

	rec, err := p.RunDaily(context.Background(), "AAPL", sampleNews(2), nil, sampleNews(1))
	require.NoError(t, err)

	assert.Equal(t, NoPriceDataMarker, rec.Sections[models.SectionPriceAnalysis])
	// Only news, market context, and synthesis should hit the generator.
	assert.Equal(t, 3, gen.calls())
	for _, req := range gen.requests {
		assert.NotContains(t, req.System, "TECHNICAL ANALYST")
	}
}

func TestRunDailyEmptyMarketNewsUsesMarker(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(gen, 0.3)

	rec, err := p.RunDaily(context.Background(), "MSFT", sampleNews(2), samplePrices(5), nil)
	require.NoError(t, err)

	assert.Equal(t, NoMarketContextMarker, rec.Sections[models.SectionMarketContext])
	assert.Equal(t, 3, gen.calls())
}

func TestRunDailyEmptyTicker(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(gen, 0.3)

	_, err := p.RunDaily(context.Background(), "", sampleNews(1), nil, nil)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, gen.calls())
}

func TestRunDailyStageFailureAborts(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			if strings.Contains(req.System, "TECHNICAL ANALYST") {
				return "", boom
			}
			return "ok", nil
		},
	}
	p := NewPipeline(gen, 0.3)

	rec, err := p.RunDaily(context.Background(), "NVDA", sampleNews(1), samplePrices(5), sampleNews(1))
	require.Nil(t, rec)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "price", perr.Stage)
	assert.ErrorIs(t, err, boom)

	// Later stages must not run once one has failed.
	assert.Equal(t, 2, gen.calls())
}

func TestRunDailySynthesisSeesPriorOutputs(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			switch {
			case strings.Contains(req.System, "NEWS ANALYST"):
				return "news-output", nil
			case strings.Contains(req.System, "TECHNICAL ANALYST"):
				return "price-output", nil
			case strings.Contains(req.System, "MACROECONOMIC ANALYST"):
				return "macro-output", nil
			}
			return "final-output", nil
		},
	}
	p := NewPipeline(gen, 0.3)

	_, err := p.RunDaily(context.Background(), "TSLA", sampleNews(1), samplePrices(5), sampleNews(1))
	require.NoError(t, err)

	last := gen.requests[len(gen.requests)-1]
	assert.Contains(t, last.User, "news-output")
	assert.Contains(t, last.User, "price-output")
	assert.Contains(t, last.User, "macro-output")
	assert.Contains(t, last.User, "TSLA")
}
