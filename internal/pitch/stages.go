package pitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// StageRunner is the pipeline's view of the five analysis stages. Only the
// stakeholder stage can fail, and only when no investor candidates are
// available at all; every other stage degrades to its fallback record.
type StageRunner interface {
	RunResearch(ctx context.Context, sourceText string) ResearchAnalysis
	RunMarket(ctx context.Context, research ResearchAnalysis) MarketIntel
	RunFeasibility(ctx context.Context, research ResearchAnalysis, market MarketIntel) FeasibilityAssessment
	RunStakeholder(ctx context.Context, profile ProjectProfile) (StakeholderReport, error)
	RunPitch(ctx context.Context, in PitchInput) PitchDeck
}

type PitchInput struct {
	Research    ResearchAnalysis
	Market      MarketIntel
	Feasibility FeasibilityAssessment
	Stakeholder StakeholderReport
}

type LLMStageRunner struct {
	exec       *StageExecutor
	searcher   Searcher
	candidates []InvestorCandidate
}

// NewLLMStageRunner wires a stage runner. searcher may be nil, in which case
// the market stage skips web enrichment and summarizes from upstream context
// alone.
func NewLLMStageRunner(exec *StageExecutor, searcher Searcher, candidates []InvestorCandidate) *LLMStageRunner {
	return &LLMStageRunner{exec: exec, searcher: searcher, candidates: candidates}
}

const researchPrompt = `Analyze this research document and extract its commercial core.

Provide:
1. Key innovations (list of 3-5 main innovations)
2. Technology readiness level (TRL 0-9)
3. Application domains (list of relevant industries)
4. Technical summary (brief description of the technology)

Return as JSON with keys: innovations, readiness_level, application_domains, technical_summary

Document text:
%s`

const marketSizePrompt = `Estimate the market opportunity for these innovations: %s
in these domains: %s

Provide:
1. Total Addressable Market (TAM)
2. Serviceable Addressable Market (SAM)
3. Serviceable Obtainable Market (SOM)

Return as JSON with keys: TAM, SAM, SOM
%s`

const competitorsPrompt = `Identify the major market players competing with these innovations: %s
in these domains: %s

Return as JSON with key "competitors" containing a list of 3-5 company names.
%s`

const trendsPrompt = `Summarize the key market trends relevant to these innovations: %s
in these domains: %s

Return as JSON with key "trends" containing a list of 3-5 trend descriptions.
%s`

const fundingPrompt = `Summarize recent startup funding activity in this market for these innovations: %s
in these domains: %s

Return as JSON with key "funding_notes" containing a list of short funding signals.
%s`

const feasibilityPrompt = `Assess the commercial feasibility of this technology.

Provide:
1. Development roadmap (list of 5-7 key milestones)
2. Resource requirements (time, team size, budget)
3. Key risks (list of 5-7 risks)
4. Feasibility score (0-10)

Return as JSON with keys: roadmap, resources, risks, feasibility_score

Research analysis:
%s

Market intelligence:
%s`

const deckPrompt = `Generate investor pitch deck content from this analysis.

Create exactly 7 slides:
1. Problem & Opportunity
2. Core Innovation
3. Market Landscape
4. Competitive Advantage
5. Feasibility & Roadmap
6. Business Potential
7. Next Steps & Investor Recommendations

Return as JSON with key "slides" containing an array of objects with "title" and "content" fields.

Research analysis:
%s

Market intelligence:
%s

Feasibility assessment:
%s

Stakeholder report:
%s`

func (r *LLMStageRunner) RunResearch(ctx context.Context, sourceText string) ResearchAnalysis {
	record := r.exec.Generate(ctx, StageResearch, fmt.Sprintf(researchPrompt, sourceText), researchFallback())
	out := ResearchAnalysis{
		Innovations:      asStringList(record["innovations"]),
		ReadinessLevel:   clampInt(asInt(record["readiness_level"]), 0, 9),
		Domains:          asStringList(record["application_domains"]),
		TechnicalSummary: asStringOr(record["technical_summary"], "N/A"),
	}
	out.AnalysisSummary = fmt.Sprintf("%d innovations, TRL %d/9", len(out.Innovations), out.ReadinessLevel)
	return out
}

func (r *LLMStageRunner) RunMarket(ctx context.Context, research ResearchAnalysis) MarketIntel {
	innovations := strings.Join(research.Innovations, ", ")
	domains := strings.Join(research.Domains, ", ")
	fb := marketFallback()
	out := MarketIntel{FundingNotes: []string{}}

	for _, category := range SearchCategories {
		findings := r.searchContext(ctx, category, research)
		switch category {
		case CategoryMarketSize:
			record := r.exec.Generate(ctx, stageLabel(StageMarket, category),
				fmt.Sprintf(marketSizePrompt, innovations, domains, findings),
				pick(fb, "TAM", "SAM", "SOM"))
			out.TAM = displayOr(record["TAM"])
			out.SAM = displayOr(record["SAM"])
			out.SOM = displayOr(record["SOM"])
		case CategoryCompetitors:
			record := r.exec.Generate(ctx, stageLabel(StageMarket, category),
				fmt.Sprintf(competitorsPrompt, innovations, domains, findings),
				pick(fb, "competitors"))
			out.Competitors = toCompetitors(record["competitors"])
		case CategoryTrends:
			record := r.exec.Generate(ctx, stageLabel(StageMarket, category),
				fmt.Sprintf(trendsPrompt, innovations, domains, findings),
				pick(fb, "trends"))
			out.Trends = toTrends(record["trends"])
		case CategoryFunding:
			record := r.exec.Generate(ctx, stageLabel(StageMarket, category),
				fmt.Sprintf(fundingPrompt, innovations, domains, findings),
				map[string]any{"funding_notes": []any{}})
			out.FundingNotes = asStringList(record["funding_notes"])
		}
	}

	out.MarketSummary = fmt.Sprintf("TAM %s, %d trends, %d competitors", out.TAM, len(out.Trends), len(out.Competitors))
	return out
}

// searchContext runs the web search for one category. A failed or empty
// search degrades only this category's enrichment; the summarization call
// still happens.
func (r *LLMStageRunner) searchContext(ctx context.Context, category SearchCategory, research ResearchAnalysis) string {
	if r.searcher == nil {
		return ""
	}
	results, err := r.searcher.Search(ctx, categoryQuery(category, research))
	if err != nil {
		log.Printf("pitch market search failed category=%s err=%v", category, err)
		return ""
	}
	digest := digestResults(results)
	if digest == "" {
		return ""
	}
	return "\nWeb search findings:\n" + digest
}

func (r *LLMStageRunner) RunFeasibility(ctx context.Context, research ResearchAnalysis, market MarketIntel) FeasibilityAssessment {
	record := r.exec.Generate(ctx, StageFeasibility,
		fmt.Sprintf(feasibilityPrompt, mustJSON(research), mustJSON(market)),
		feasibilityFallback())
	out := FeasibilityAssessment{
		Roadmap:          asStringList(record["roadmap"]),
		Risks:            asStringList(record["risks"]),
		FeasibilityScore: clampInt(asInt(record["feasibility_score"]), 0, 10),
	}
	if res, ok := record["resources"].(map[string]any); ok {
		out.Resources = ResourceEstimate{
			Time:     asStringOr(res["time"], "N/A"),
			TeamSize: asStringOr(res["team_size"], "N/A"),
			Budget:   asStringOr(res["budget"], "N/A"),
		}
	} else {
		out.Resources = ResourceEstimate{Time: "N/A", TeamSize: "N/A", Budget: "N/A"}
	}
	out.FeasibilitySummary = fmt.Sprintf("feasibility %d/10, %d roadmap milestones", out.FeasibilityScore, len(out.Roadmap))
	return out
}

func (r *LLMStageRunner) RunStakeholder(_ context.Context, profile ProjectProfile) (StakeholderReport, error) {
	if len(r.candidates) == 0 {
		return StakeholderReport{}, errors.New("no investor candidates loaded")
	}
	matches := TopMatches(profile, r.candidates, 5)
	stats := MatchStatistics{TotalMatches: len(matches)}
	sum := 0.0
	for _, m := range matches {
		sum += m.MatchScore
		if m.MatchScore >= 0.7 {
			stats.HighConfidenceMatches++
		}
	}
	if len(matches) > 0 {
		stats.AverageMatchScore = math.Round(sum/float64(len(matches))*100) / 100
	}
	out := StakeholderReport{
		TeamRoles:       TeamRecommendations(profile),
		InvestorMatches: matches,
		MatchStatistics: stats,
	}
	out.StakeholderSummary = fmt.Sprintf("%d investor matches, %d high-confidence", stats.TotalMatches, stats.HighConfidenceMatches)
	return out, nil
}

func (r *LLMStageRunner) RunPitch(ctx context.Context, in PitchInput) PitchDeck {
	record := r.exec.Generate(ctx, StagePitch,
		fmt.Sprintf(deckPrompt, mustJSON(in.Research), mustJSON(in.Market), mustJSON(in.Feasibility), mustJSON(in.Stakeholder)),
		deckFallback())
	out := PitchDeck{Slides: toSlides(record["slides"])}
	if len(out.Slides) == 0 {
		out.Slides = toSlides(deckFallback()["slides"])
	}
	out.ExecutiveSummary = buildExecutiveSummary(in)
	out.KeyMetrics = buildKeyMetrics(in)
	out.DeckSummary = fmt.Sprintf("Generated pitch deck with %d slides covering problem, innovation, market and funding readiness", len(out.Slides))
	return out
}

func buildExecutiveSummary(in PitchInput) string {
	innovation := "the core technology"
	if len(in.Research.Innovations) > 0 {
		innovation = in.Research.Innovations[0]
	}
	return fmt.Sprintf(
		"%s targets a %s total addressable market at TRL %d with a feasibility score of %d/10. %d investor matches identified.",
		innovation, in.Market.TAM, in.Research.ReadinessLevel, in.Feasibility.FeasibilityScore, in.Stakeholder.MatchStatistics.TotalMatches,
	)
}

func buildKeyMetrics(in PitchInput) map[string]any {
	top := 0.0
	if len(in.Stakeholder.InvestorMatches) > 0 {
		top = in.Stakeholder.InvestorMatches[0].MatchScore
	}
	return map[string]any{
		"tam":               in.Market.TAM,
		"sam":               in.Market.SAM,
		"som":               in.Market.SOM,
		"readiness_level":   in.Research.ReadinessLevel,
		"feasibility_score": in.Feasibility.FeasibilityScore,
		"investor_matches":  in.Stakeholder.MatchStatistics.TotalMatches,
		"top_match_score":   top,
	}
}

var budgetAmountRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([kKmMbB])?`)

// ParseBudgetAmount extracts a numeric funding amount from a display string
// such as "$1.5M" or "500k". Returns 0 when no amount is present.
func ParseBudgetAmount(budget string) int64 {
	m := budgetAmountRe.FindStringSubmatch(budget)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	case "b":
		v *= 1_000_000_000
	}
	return int64(v)
}

func stageLabel(stage string, category SearchCategory) string {
	return stage + ":" + string(category)
}

// pick copies the named keys out of a stage fallback, giving each
// per-category call its own fallback slice.
func pick(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

func displayOr(v any) string {
	s := CoerceDisplayValue(v)
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func asStringOr(v any, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func asStringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s := strings.TrimSpace(CoerceDisplayValue(item))
		if s == "" || s == "N/A" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toTrends(v any) []TrendRecord {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []TrendRecord
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func toCompetitors(v any) []CompetitorRecord {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []CompetitorRecord
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func toSlides(v any) []Slide {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Slide, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := Slide{Title: asStringOr(m["title"], "Untitled"), Content: asStringOr(m["content"], "")}
		out = append(out, s)
	}
	return out
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
