package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tickerbrief/tickerbrief/internal/llm"
	"github.com/tickerbrief/tickerbrief/internal/models"
	"github.com/tickerbrief/tickerbrief/internal/prompts"
)

// DefaultFacetWorkers bounds how many reflection facets run concurrently.
// The limit exists for API rate headroom, not CPU.
const DefaultFacetWorkers = 3

// dateRef matches an ISO date or a "Month 2, 2024" style reference.
var dateRef = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|(?i)(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}`)

// facetSpec pairs a reflection facet with the section it fills.
type facetSpec struct {
	facet   prompts.Facet
	section string
	header  string
}

// Facets run concurrently but always compose in this order.
var reflectionFacets = []facetSpec{
	{prompts.FacetPatternAnalysis, models.SectionPatternAnalysis, "Pattern Analysis"},
	{prompts.FacetSentimentEvolution, models.SectionSentimentEvolution, "Sentiment Evolution"},
	{prompts.FacetKeyEvents, models.SectionKeyEvents, "Key Events"},
	{prompts.FacetInvestmentThesis, models.SectionInvestmentThesis, "Investment Thesis"},
	{prompts.FacetRiskAssessment, models.SectionRiskAssessment, "Risk Assessment"},
}

// Reflector aggregates a window of archived daily records into a
// second-order synthesis.
type Reflector struct {
	gen         Generator
	workers     int
	temperature float32
}

// NewReflector creates a reflection engine. workers <= 0 selects the
// default facet concurrency.
func NewReflector(gen Generator, workers int, temperature float32) *Reflector {
	if workers <= 0 {
		workers = DefaultFacetWorkers
	}
	if temperature <= 0 {
		temperature = llm.DefaultTemperature
	}
	return &Reflector{gen: gen, workers: workers, temperature: temperature}
}

// RunReflection synthesizes the supplied daily records into a reflection
// record. ticker may be empty for portfolio scope, in which case every
// corpus entry is tagged with its own ticker. The reported period reflects
// the dates actually present in records, which may be narrower than the
// window the caller queried.
//
// The five facet calls run concurrently; the first failure aborts the whole
// reflection (no per-facet placeholders).
func (r *Reflector) RunReflection(ctx context.Context, records []models.AnalysisRecord, ticker, periodType string) (*models.AnalysisRecord, error) {
	if len(records) == 0 {
		return nil, ErrInsufficientHistory
	}
	if periodType == "" {
		return nil, &models.ValidationError{Field: "period_type", Reason: "empty period type"}
	}

	periodStart, periodEnd, dayCount := coverage(records)
	corpus := buildCorpus(records, ticker)

	target := ticker
	if target == "" {
		target = "the portfolio"
	}
	vars := map[string]string{
		"ticker":         target,
		"period_type":    periodType,
		"summaries_text": corpus,
	}

	log.Info().
		Str("ticker", ticker).
		Str("period", periodType).
		Str("start", periodStart).
		Str("end", periodEnd).
		Int("days", dayCount).
		Msg("Running reflection")

	outputs := make([]string, len(reflectionFacets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, spec := range reflectionFacets {
		g.Go(func() error {
			tmpl, ok := prompts.Lookup(spec.facet)
			if !ok {
				return fmt.Errorf("no template registered for facet %s", spec.facet)
			}
			system, user := tmpl.Render(vars)
			out, err := r.gen.Generate(gctx, llm.GenerateRequest{
				System:      system,
				User:        user,
				Temperature: r.temperature,
			})
			if err != nil {
				return &PipelineError{Stage: string(spec.facet), Err: err}
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec := &models.AnalysisRecord{
		Ticker:      ticker,
		Date:        time.Now().Format(models.DateFormat),
		Type:        models.ReflectionType(periodType),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Sections:    make(map[string]string, len(reflectionFacets)),
		DayCount:    dayCount,
		CreatedAt:   time.Now(),
	}

	var body strings.Builder
	for i, spec := range reflectionFacets {
		rec.Sections[spec.section] = outputs[i]
		if i > 0 {
			body.WriteString("\n\n")
		}
		fmt.Fprintf(&body, "## %s\n\n%s", spec.header, outputs[i])

		// Ranking of key events is delegated to generation, but an
		// answer with no date reference cannot be traced back into the
		// corpus; flag it rather than fixing it.
		if spec.facet == prompts.FacetKeyEvents && !dateRef.MatchString(outputs[i]) {
			rec.LowConfidence = append(rec.LowConfidence, spec.section)
			log.Warn().Str("facet", spec.section).Msg("Facet output has no date reference, marked low confidence")
		}
	}
	rec.Body = body.String()

	return rec, nil
}

// coverage derives the actual period from the record dates.
func coverage(records []models.AnalysisRecord) (start, end string, days int) {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Date == "" {
			continue
		}
		if start == "" || rec.Date < start {
			start = rec.Date
		}
		if rec.Date > end {
			end = rec.Date
		}
		seen[rec.Date] = struct{}{}
	}
	return start, end, len(seen)
}

// buildCorpus concatenates record bodies chronologically, tagging each entry
// with its date and, in portfolio mode, its ticker.
func buildCorpus(records []models.AnalysisRecord, ticker string) string {
	sorted := make([]models.AnalysisRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	entries := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		body := rec.Body
		if s, ok := rec.Sections[models.SectionFinalSummary]; ok && s != "" {
			body = s
		}
		if ticker == "" {
			entries = append(entries, fmt.Sprintf("Date: %s | Ticker: %s\n%s", rec.Date, rec.Ticker, body))
		} else {
			entries = append(entries, fmt.Sprintf("Date: %s\n%s", rec.Date, body))
		}
	}
	return strings.Join(entries, "\n\n")
}
