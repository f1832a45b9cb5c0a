package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerbrief/tickerbrief/internal/llm"
	"github.com/tickerbrief/tickerbrief/internal/models"
)

func dailyRecord(ticker, date, summary string) models.AnalysisRecord {
	return models.AnalysisRecord{
		Ticker: ticker,
		Date:   date,
		Type:   models.AnalysisDaily,
		Body:   summary,
		Sections: map[string]string{
			models.SectionFinalSummary: summary,
		},
		CreatedAt: time.Now(),
	}
}

func TestRunReflectionEmptyInput(t *testing.T) {
	gen := &fakeGenerator{}
	r := NewReflector(gen, 2, 0.3)

	_, err := r.RunReflection(context.Background(), nil, "AAPL", "week")
	require.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Zero(t, gen.calls())
}

func TestRunReflectionPeriodFromActualCoverage(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			return "On 2024-01-03 momentum improved.", nil
		},
	}
	r := NewReflector(gen, 2, 0.3)

	// Caller may have requested 30 days; only 5 exist.
	records := []models.AnalysisRecord{
		dailyRecord("AAPL", "2024-01-03", "day three"),
		dailyRecord("AAPL", "2024-01-01", "day one"),
		dailyRecord("AAPL", "2024-01-05", "day five"),
		dailyRecord("AAPL", "2024-01-02", "day two"),
		dailyRecord("AAPL", "2024-01-04", "day four"),
	}

	rec, err := r.RunReflection(context.Background(), records, "AAPL", "week")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", rec.PeriodStart)
	assert.Equal(t, "2024-01-05", rec.PeriodEnd)
	assert.Equal(t, 5, rec.DayCount)
	assert.Equal(t, models.AnalysisReflectionWeek, rec.Type)
	require.NoError(t, rec.Validate())
}

func TestRunReflectionDuplicateDatesCountOnce(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			return "2024-02-01 repeated coverage.", nil
		},
	}
	r := NewReflector(gen, 2, 0.3)

	records := []models.AnalysisRecord{
		dailyRecord("AAPL", "2024-02-01", "run one"),
		dailyRecord("AAPL", "2024-02-01", "run two"),
		dailyRecord("AAPL", "2024-02-02", "next day"),
	}

	rec, err := r.RunReflection(context.Background(), records, "AAPL", "week")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.DayCount)
}

func TestRunReflectionSectionsAndBody(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			return "facet output referencing 2024-03-04", nil
		},
	}
	r := NewReflector(gen, 3, 0.3)

	records := []models.AnalysisRecord{
		dailyRecord("NVDA", "2024-03-04", "chips up"),
		dailyRecord("NVDA", "2024-03-05", "chips down"),
	}

	rec, err := r.RunReflection(context.Background(), records, "NVDA", "month")
	require.NoError(t, err)

	require.Len(t, rec.Sections, 5)
	for _, key := range []string{
		models.SectionPatternAnalysis,
		models.SectionSentimentEvolution,
		models.SectionKeyEvents,
		models.SectionInvestmentThesis,
		models.SectionRiskAssessment,
	} {
		assert.NotEmpty(t, rec.Sections[key], "section %s", key)
	}

	assert.Equal(t, 5, gen.calls())
	assert.Equal(t, models.AnalysisType("reflection_month"), rec.Type)
	for _, header := range []string{"## Pattern Analysis", "## Sentiment Evolution", "## Key Events", "## Investment Thesis", "## Risk Assessment"} {
		assert.Contains(t, rec.Body, header)
	}
	assert.Empty(t, rec.LowConfidence)
}

func TestRunReflectionCorpusChronologicalWithDates(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			return "2024-01-02 was pivotal.", nil
		},
	}
	r := NewReflector(gen, 1, 0.3)

	records := []models.AnalysisRecord{
		dailyRecord("AAPL", "2024-01-03", "later entry"),
		dailyRecord("AAPL", "2024-01-01", "earlier entry"),
	}

	_, err := r.RunReflection(context.Background(), records, "AAPL", "week")
	require.NoError(t, err)

	user := gen.requests[0].User
	first := strings.Index(user, "Date: 2024-01-01")
	second := strings.Index(user, "Date: 2024-01-03")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, user, "earlier entry")
	assert.NotContains(t, user, "Ticker:", "single-ticker corpus should not carry ticker tags")
}

func TestRunReflectionPortfolioModeTagsTickers(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			return "2024-01-02 cross-ticker rotation.", nil
		},
	}
	r := NewReflector(gen, 1, 0.3)

	records := []models.AnalysisRecord{
		dailyRecord("AAPL", "2024-01-02", "apple entry"),
		dailyRecord("MSFT", "2024-01-02", "microsoft entry"),
	}

	rec, err := r.RunReflection(context.Background(), records, "", "week")
	require.NoError(t, err)

	user := gen.requests[0].User
	assert.Contains(t, user, "Date: 2024-01-02 | Ticker: AAPL")
	assert.Contains(t, user, "Date: 2024-01-02 | Ticker: MSFT")
	assert.Contains(t, user, "the portfolio")
	assert.Empty(t, rec.Ticker)
}

func TestRunReflectionKeyEventsWithoutDateIsLowConfidence(t *testing.T) {
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			if strings.Contains(req.System, "EVENTS ANALYST") {
				return "Something big happened at some point.", nil
			}
			return "Referenced on 2024-01-02.", nil
		},
	}
	r := NewReflector(gen, 2, 0.3)

	records := []models.AnalysisRecord{dailyRecord("AAPL", "2024-01-02", "entry")}

	rec, err := r.RunReflection(context.Background(), records, "AAPL", "week")
	require.NoError(t, err)
	assert.Equal(t, []string{models.SectionKeyEvents}, rec.LowConfidence)
}

func TestRunReflectionFacetFailureAbortsWhole(t *testing.T) {
	boom := errors.New("rate limited")
	gen := &fakeGenerator{
		respond: func(req llm.GenerateRequest) (string, error) {
			if strings.Contains(req.System, "SENTIMENT ANALYST") {
				return "", boom
			}
			return "2024-01-02 fine.", nil
		},
	}
	r := NewReflector(gen, 1, 0.3)

	records := []models.AnalysisRecord{dailyRecord("AAPL", "2024-01-02", "entry")}

	rec, err := r.RunReflection(context.Background(), records, "AAPL", "week")
	require.Nil(t, rec)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "sentiment_evolution", perr.Stage)
	assert.ErrorIs(t, err, boom)
}

func TestRunReflectionEmptyPeriodType(t *testing.T) {
	gen := &fakeGenerator{}
	r := NewReflector(gen, 1, 0.3)

	_, err := r.RunReflection(context.Background(), []models.AnalysisRecord{dailyRecord("AAPL", "2024-01-02", "entry")}, "AAPL", "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, gen.calls())
}
