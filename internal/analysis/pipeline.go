// Package analysis implements the two analysis workflows: the fixed-order
// daily pipeline that turns raw news, price, and market inputs into a daily
// record, and the reflection engine that aggregates a window of archived
// daily records into a second-order synthesis.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tickerbrief/tickerbrief/internal/format"
	"github.com/tickerbrief/tickerbrief/internal/llm"
	"github.com/tickerbrief/tickerbrief/internal/models"
	"github.com/tickerbrief/tickerbrief/internal/prompts"
)

// Generator is the single capability the workflows need from the LLM layer.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (string, error)
}

// Fixed markers produced instead of a generation call when a stage has no
// input to analyze.
const (
	NoPriceDataMarker     = "No price data available."
	NoMarketContextMarker = "No market context available."
)

// Pipeline runs the daily analysis workflow. Stages execute strictly in
// order; each stage's output is input to the synthesis stage.
type Pipeline struct {
	gen         Generator
	temperature float32
}

// NewPipeline creates a daily analysis pipeline.
func NewPipeline(gen Generator, temperature float32) *Pipeline {
	if temperature <= 0 {
		temperature = llm.DefaultTemperature
	}
	return &Pipeline{gen: gen, temperature: temperature}
}

// dailyState is the accumulator threaded through the stages. Each run owns
// its state exclusively; it is discarded once the record is built.
type dailyState struct {
	ticker     string
	news       []models.NewsArticle
	prices     models.PriceSeries
	marketNews []models.NewsArticle

	newsSummary   string
	priceAnalysis string
	marketContext string
	finalSummary  string
}

// RunDaily produces a daily analysis record for a ticker. Any generation
// failure aborts the run with a PipelineError naming the failing stage;
// partial state is discarded and nothing is persisted.
func (p *Pipeline) RunDaily(ctx context.Context, ticker string, news []models.NewsArticle, prices models.PriceSeries, marketNews []models.NewsArticle) (*models.AnalysisRecord, error) {
	if ticker == "" {
		return nil, &models.ValidationError{Field: "ticker", Reason: "empty ticker"}
	}

	st := &dailyState{ticker: ticker, news: news, prices: prices, marketNews: marketNews}

	stages := []struct {
		name string
		run  func(context.Context, *dailyState) error
	}{
		{"news", p.newsStage},
		{"price", p.priceStage},
		{"market_context", p.marketContextStage},
		{"synthesis", p.synthesisStage},
	}

	start := time.Now()
	for _, s := range stages {
		if err := s.run(ctx, st); err != nil {
			return nil, &PipelineError{Stage: s.name, Err: err}
		}
	}

	log.Info().
		Str("ticker", ticker).
		Int("articles", len(news)).
		Dur("elapsed", time.Since(start)).
		Msg("Daily analysis complete")

	return &models.AnalysisRecord{
		Ticker: ticker,
		Date:   time.Now().Format(models.DateFormat),
		Type:   models.AnalysisDaily,
		Body:   st.finalSummary,
		Sections: map[string]string{
			models.SectionNewsSummary:   st.newsSummary,
			models.SectionPriceAnalysis: st.priceAnalysis,
			models.SectionMarketContext: st.marketContext,
			models.SectionFinalSummary:  st.finalSummary,
		},
		ArticleCount: len(news),
		CreatedAt:    time.Now(),
	}, nil
}

func (p *Pipeline) newsStage(ctx context.Context, st *dailyState) error {
	out, err := p.invoke(ctx, prompts.FacetNewsAnalysis, map[string]string{
		"ticker":    st.ticker,
		"news_text": format.News(st.news, st.ticker),
	})
	if err != nil {
		return err
	}
	st.newsSummary = out
	return nil
}

func (p *Pipeline) priceStage(ctx context.Context, st *dailyState) error {
	// Market topics and thin feeds arrive without price data; skip the
	// generation call entirely.
	if len(st.prices) == 0 {
		st.priceAnalysis = NoPriceDataMarker
		return nil
	}
	out, err := p.invoke(ctx, prompts.FacetPriceAnalysis, map[string]string{
		"ticker":     st.ticker,
		"price_text": format.Prices(st.prices, st.ticker, format.DefaultPricePoints),
	})
	if err != nil {
		return err
	}
	st.priceAnalysis = out
	return nil
}

func (p *Pipeline) marketContextStage(ctx context.Context, st *dailyState) error {
	if len(st.marketNews) == 0 {
		st.marketContext = NoMarketContextMarker
		return nil
	}
	out, err := p.invoke(ctx, prompts.FacetMarketContext, map[string]string{
		"market_text": format.News(st.marketNews, ""),
	})
	if err != nil {
		return err
	}
	st.marketContext = out
	return nil
}

func (p *Pipeline) synthesisStage(ctx context.Context, st *dailyState) error {
	out, err := p.invoke(ctx, prompts.FacetSynthesis, map[string]string{
		"ticker":         st.ticker,
		"news_summary":   st.newsSummary,
		"price_analysis": st.priceAnalysis,
		"market_context": st.marketContext,
	})
	if err != nil {
		return err
	}
	st.finalSummary = out
	return nil
}

func (p *Pipeline) invoke(ctx context.Context, facet prompts.Facet, vars map[string]string) (string, error) {
	tmpl, ok := prompts.Lookup(facet)
	if !ok {
		return "", fmt.Errorf("no template registered for facet %s", facet)
	}
	system, user := tmpl.Render(vars)
	return p.gen.Generate(ctx, llm.GenerateRequest{
		System:      system,
		User:        user,
		Temperature: p.temperature,
	})
}
