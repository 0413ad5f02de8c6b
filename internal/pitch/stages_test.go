package pitch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type failingCaller struct{}

func (failingCaller) GenerateJSON(context.Context, string) (string, error) {
	return "", errors.New("status code: 503")
}

func noSleep(time.Duration) {}

func runnerWith(caller LLMCaller, searcher Searcher, candidates []InvestorCandidate) *LLMStageRunner {
	exec := NewStageExecutor(caller)
	exec.sleep = noSleep
	return NewLLMStageRunner(exec, searcher, candidates)
}

func TestRunResearchParsesAndClamps(t *testing.T) {
	caller := &scriptedCaller{responses: []string{`{
		"innovations": ["a", "b"],
		"readiness_level": 14,
		"application_domains": ["Healthcare"],
		"technical_summary": "sum"
	}`}}
	r := runnerWith(caller, nil, nil)
	got := r.RunResearch(context.Background(), "text")
	if got.ReadinessLevel != 9 {
		t.Fatalf("TRL not clamped: %d", got.ReadinessLevel)
	}
	if got.AnalysisSummary != "2 innovations, TRL 9/9" {
		t.Fatalf("narration %q", got.AnalysisSummary)
	}
}

func TestRunResearchFallback(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"no json here"}}
	r := runnerWith(caller, nil, nil)
	got := r.RunResearch(context.Background(), "text")
	if got.ReadinessLevel != 5 {
		t.Fatalf("expected fallback TRL 5, got %d", got.ReadinessLevel)
	}
	if len(got.Innovations) != 3 {
		t.Fatalf("expected 3 fallback innovations, got %d", len(got.Innovations))
	}
	if got.AnalysisSummary != "3 innovations, TRL 5/9" {
		t.Fatalf("narration %q", got.AnalysisSummary)
	}
}

type fakeSearcher struct {
	queries []string
	results []SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestRunMarketCoercesNestedShapes(t *testing.T) {
	caller := &scriptedCaller{responses: []string{
		`{"TAM": {"value": "$10B"}, "SAM": {"estimates": [{"size":"$1B","year":2020},{"size":"$2B","year":2023}]}, "SOM": "$500M"}`,
		`{"competitors": ["Google", {"name": "Acme"}]}`,
		`{"trends": [{"trend": "automation"}, "edge compute"]}`,
		`{"funding_notes": ["Series A rounds up 20%"]}`,
	}}
	searcher := &fakeSearcher{results: []SearchResult{{Title: "T", Content: "C", URL: "u"}}}
	r := runnerWith(caller, searcher, nil)
	research := ResearchAnalysis{Innovations: []string{"x"}, Domains: []string{"Healthcare"}}

	got := r.RunMarket(context.Background(), research)
	if got.TAM != "$10B" {
		t.Errorf("TAM %q", got.TAM)
	}
	if got.SAM != "$2B (2023)" {
		t.Errorf("SAM %q", got.SAM)
	}
	if got.SOM != "$500M" {
		t.Errorf("SOM %q", got.SOM)
	}
	if len(got.Competitors) != 2 || got.Competitors[1].Name != "Acme" {
		t.Errorf("competitors %#v", got.Competitors)
	}
	if len(got.Trends) != 2 || got.Trends[0].Text != "automation" {
		t.Errorf("trends %#v", got.Trends)
	}
	if len(got.FundingNotes) != 1 {
		t.Errorf("funding notes %#v", got.FundingNotes)
	}
	if len(searcher.queries) != len(SearchCategories) {
		t.Errorf("expected one search per category, got %d", len(searcher.queries))
	}
}

func TestRunMarketAllFailingEqualsFallback(t *testing.T) {
	r := runnerWith(failingCaller{}, nil, nil)
	got := r.RunMarket(context.Background(), ResearchAnalysis{})
	if got.TAM != "$500B" || got.SAM != "$50B" || got.SOM != "$5B" {
		t.Fatalf("market sizes not fallback: %q %q %q", got.TAM, got.SAM, got.SOM)
	}
	if len(got.Trends) != 3 || len(got.Competitors) != 5 {
		t.Fatalf("trends/competitors not fallback: %d/%d", len(got.Trends), len(got.Competitors))
	}
	if len(got.FundingNotes) != 0 {
		t.Fatalf("funding notes should default empty, got %#v", got.FundingNotes)
	}
}

func TestRunMarketSearchFailureDegradesCategoryOnly(t *testing.T) {
	caller := &scriptedCaller{responses: []string{
		`{"TAM":"$1B","SAM":"$100M","SOM":"$10M"}`,
		`{"competitors":["A"]}`,
		`{"trends":["t"]}`,
		`{"funding_notes":[]}`,
	}}
	searcher := &fakeSearcher{err: errors.New("search down")}
	r := runnerWith(caller, searcher, nil)
	got := r.RunMarket(context.Background(), ResearchAnalysis{})
	if got.TAM != "$1B" {
		t.Fatalf("summarization must continue without search, TAM %q", got.TAM)
	}
	if caller.calls != 4 {
		t.Fatalf("expected 4 summarization calls, got %d", caller.calls)
	}
}

func TestRunFeasibilityDefaultsAndClamps(t *testing.T) {
	caller := &scriptedCaller{responses: []string{`{"roadmap":["m1"],"feasibility_score":22}`}}
	r := runnerWith(caller, nil, nil)
	got := r.RunFeasibility(context.Background(), ResearchAnalysis{}, MarketIntel{})
	if got.FeasibilityScore != 10 {
		t.Fatalf("score not clamped: %d", got.FeasibilityScore)
	}
	if got.Resources.Budget != "N/A" || got.Resources.Time != "N/A" {
		t.Fatalf("missing resources not defaulted: %#v", got.Resources)
	}
	if got.FeasibilitySummary != "feasibility 10/10, 1 roadmap milestones" {
		t.Fatalf("narration %q", got.FeasibilitySummary)
	}
}

func TestRunStakeholder(t *testing.T) {
	r := runnerWith(failingCaller{}, nil, DefaultCandidates())
	profile := ProjectProfile{
		Domains:        []string{"Healthcare", "AI/ML"},
		ReadinessLevel: 5,
		FundingNeeds:   250000,
		Geography:      "Global",
	}
	got, err := r.RunStakeholder(context.Background(), profile)
	if err != nil {
		t.Fatal(err)
	}
	if got.MatchStatistics.TotalMatches == 0 {
		t.Fatal("expected matches")
	}
	if got.MatchStatistics.TotalMatches != len(got.InvestorMatches) {
		t.Fatal("stats out of sync with matches")
	}
	if len(got.TeamRoles) != 4 {
		t.Fatalf("team roles %#v", got.TeamRoles)
	}
	if !strings.Contains(got.StakeholderSummary, "investor matches") {
		t.Fatalf("narration %q", got.StakeholderSummary)
	}
}

func TestRunStakeholderNoCandidatesIsFatal(t *testing.T) {
	r := runnerWith(failingCaller{}, nil, nil)
	if _, err := r.RunStakeholder(context.Background(), ProjectProfile{}); err == nil {
		t.Fatal("expected error without candidates")
	}
}

func TestRunPitchFallbackSlides(t *testing.T) {
	r := runnerWith(failingCaller{}, nil, nil)
	got := r.RunPitch(context.Background(), PitchInput{
		Market:      MarketIntel{TAM: "$500B"},
		Feasibility: FeasibilityAssessment{FeasibilityScore: 7},
	})
	if len(got.Slides) != 7 {
		t.Fatalf("expected 7 fallback slides, got %d", len(got.Slides))
	}
	if got.Slides[0].Title != "Problem & Opportunity" {
		t.Fatalf("slide 0 title %q", got.Slides[0].Title)
	}
	if got.KeyMetrics["tam"] != "$500B" {
		t.Fatalf("key metrics %#v", got.KeyMetrics)
	}
	if !strings.Contains(got.DeckSummary, "7 slides") {
		t.Fatalf("deck summary %q", got.DeckSummary)
	}
}

func TestRunPitchCannedCaller(t *testing.T) {
	r := runnerWith(NewCannedCaller(), nil, nil)
	got := r.RunPitch(context.Background(), PitchInput{})
	if len(got.Slides) != 7 {
		t.Fatalf("expected 7 slides, got %d", len(got.Slides))
	}
	if got.Slides[6].Title != "Next Steps & Investor Recommendations" {
		t.Fatalf("last slide %q", got.Slides[6].Title)
	}
}

func TestParseBudgetAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"$1.5M", 1500000},
		{"500k", 500000},
		{"$2B", 2000000000},
		{"1200000", 1200000},
		{"N/A", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseBudgetAmount(tc.in); got != tc.want {
			t.Errorf("%q: got %d want %d", tc.in, got, tc.want)
		}
	}
}
