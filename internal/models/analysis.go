package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnalysisType classifies an archived record.
type AnalysisType string

const (
	// AnalysisDaily is a single-day analysis produced by the pipeline.
	AnalysisDaily AnalysisType = "daily"

	// Reflection types aggregate a window of daily records.
	AnalysisReflectionWeek    AnalysisType = "reflection_week"
	AnalysisReflectionMonth   AnalysisType = "reflection_month"
	AnalysisReflectionQuarter AnalysisType = "reflection_quarter"
)

// ReflectionType builds the analysis type for a period label, e.g.
// "week" -> "reflection_week". Custom labels are allowed.
func ReflectionType(period string) AnalysisType {
	return AnalysisType("reflection_" + period)
}

// IsReflection reports whether t is any reflection type.
func (t AnalysisType) IsReflection() bool {
	return len(t) > 11 && t[:11] == "reflection_"
}

// Section names for daily records.
const (
	SectionNewsSummary   = "news_summary"
	SectionPriceAnalysis = "price_analysis"
	SectionMarketContext = "market_context"
	SectionFinalSummary  = "final_summary"
)

// Section names for reflection records.
const (
	SectionPatternAnalysis    = "pattern_analysis"
	SectionSentimentEvolution = "sentiment_evolution"
	SectionKeyEvents          = "key_events"
	SectionInvestmentThesis   = "investment_thesis"
	SectionRiskAssessment     = "risk_assessment"
)

// DateFormat is the ISO date layout used for all archived dates.
const DateFormat = "2006-01-02"

// AnalysisRecord is the unit of archival. Records are created once by the
// pipeline or the reflection engine and stored append-only; the store never
// deduplicates or mutates them.
type AnalysisRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	// Ticker is empty for portfolio-scoped reflections.
	Ticker string       `bson:"ticker,omitempty" json:"ticker,omitempty"`
	Date   string       `bson:"date" json:"date"`
	Type   AnalysisType `bson:"type" json:"type"`

	// Period actually covered, populated only for reflections.
	PeriodStart string `bson:"period_start,omitempty" json:"period_start,omitempty"`
	PeriodEnd   string `bson:"period_end,omitempty" json:"period_end,omitempty"`

	// Body is the full synthesized text; this is what gets embedded.
	Body     string            `bson:"body" json:"body"`
	Sections map[string]string `bson:"sections" json:"sections"`

	// Provenance counters.
	ArticleCount int `bson:"article_count,omitempty" json:"article_count,omitempty"`
	DayCount     int `bson:"day_count,omitempty" json:"day_count,omitempty"`

	// Facet names whose output failed validation (e.g. a key-events list
	// with no date reference). Surfaced to callers, never auto-corrected.
	LowConfidence []string `bson:"low_confidence,omitempty" json:"low_confidence,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Validate checks the invariants every record must satisfy before it is
// persisted.
func (r *AnalysisRecord) Validate() error {
	if r.Body == "" {
		return &ValidationError{Field: "body", Reason: "empty body"}
	}
	if r.Date == "" {
		return &ValidationError{Field: "date", Reason: "missing date"}
	}
	if _, err := time.Parse(DateFormat, r.Date); err != nil {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("not an ISO date: %q", r.Date)}
	}
	if r.PeriodStart != "" && r.PeriodEnd != "" && r.PeriodStart > r.PeriodEnd {
		return &ValidationError{Field: "period", Reason: fmt.Sprintf("period_start %s after period_end %s", r.PeriodStart, r.PeriodEnd)}
	}
	if r.Type.IsReflection() && r.DayCount < 1 {
		return &ValidationError{Field: "day_count", Reason: "reflection with day_count < 1"}
	}
	return nil
}

// ValidationError reports malformed input or a record that violates an
// archival invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
