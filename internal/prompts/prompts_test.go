package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllFacetsRegistered(t *testing.T) {
	facets := []Facet{
		FacetNewsAnalysis, FacetPriceAnalysis, FacetMarketContext, FacetSynthesis,
		FacetPatternAnalysis, FacetSentimentEvolution, FacetKeyEvents,
		FacetInvestmentThesis, FacetRiskAssessment,
		FacetConciseNews, FacetRiskFocused, FacetOpportunityFocused,
	}
	for _, f := range facets {
		tmpl, ok := Lookup(f)
		require.True(t, ok, "facet %s not registered", f)
		assert.NotEmpty(t, tmpl.System, "facet %s system prompt", f)
		assert.NotEmpty(t, tmpl.User, "facet %s user prompt", f)
	}
	assert.Len(t, Facets(), len(facets))
}

func TestLookupUnknownFacet(t *testing.T) {
	_, ok := Lookup(Facet("made_up"))
	assert.False(t, ok)
}

func TestRenderSubstitutesVariables(t *testing.T) {
	tmpl, ok := Lookup(FacetSynthesis)
	require.True(t, ok)

	system, user := tmpl.Render(map[string]string{
		"ticker":         "AAPL",
		"news_summary":   "NEWS-BLOCK",
		"price_analysis": "PRICE-BLOCK",
		"market_context": "MACRO-BLOCK",
	})

	assert.Contains(t, system, "SENIOR RESEARCH ANALYST")
	assert.Contains(t, user, "AAPL")
	assert.Contains(t, user, "NEWS-BLOCK")
	assert.Contains(t, user, "PRICE-BLOCK")
	assert.Contains(t, user, "MACRO-BLOCK")
	assert.NotContains(t, user, "{ticker}")
	assert.NotContains(t, user, "{news_summary}")
}

func TestKeyEventsTemplateRequestsBoundedDatedList(t *testing.T) {
	tmpl, ok := Lookup(FacetKeyEvents)
	require.True(t, ok)

	// Ranking is delegated to generation; the template must pin the
	// bounds, ordering, and date references.
	assert.Contains(t, tmpl.System, "3 and 5")
	assert.Contains(t, tmpl.System, "impact")
	assert.Contains(t, tmpl.System, "date")
	assert.Contains(t, tmpl.User, "3-5")
}

func TestMetaPrinciplesOnAnalysisPrompts(t *testing.T) {
	for _, f := range []Facet{FacetNewsAnalysis, FacetPriceAnalysis, FacetSynthesis, FacetRiskAssessment} {
		tmpl, _ := Lookup(f)
		assert.True(t, strings.Contains(tmpl.System, "CORE ANALYSIS PRINCIPLES"), "facet %s", f)
	}
}
