package pitch

import (
	"strings"
	"time"
)

const (
	MinSourceChars = 100
	MinSourceWords = 50
	MaxSourceChars = 100000
)

// Stage names, in pipeline order. Index in this slice is the slot index.
const (
	StageResearch    = "research_analysis"
	StageMarket      = "market_intelligence"
	StageFeasibility = "feasibility"
	StageStakeholder = "stakeholder_matching"
	StagePitch       = "pitch_assembly"
)

var StageOrder = []string{StageResearch, StageMarket, StageFeasibility, StageStakeholder, StagePitch}

type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

type RunStatus string

const (
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// ProjectProfile accumulates the attributes the investor matcher scores
// against. Innovations/ReadinessLevel/Domains come from the research stage,
// FundingNeeds from the feasibility stage's budget estimate.
type ProjectProfile struct {
	Innovations    []string `json:"innovations"`
	ReadinessLevel int      `json:"readiness_level"`
	Domains        []string `json:"application_domains"`
	FundingNeeds   int64    `json:"funding_needs"`
	Geography      string   `json:"geo"`
}

type ResearchAnalysis struct {
	Innovations      []string `json:"innovations"`
	ReadinessLevel   int      `json:"readiness_level"`
	Domains          []string `json:"application_domains"`
	TechnicalSummary string   `json:"technical_summary"`
	AnalysisSummary  string   `json:"analysis_summary"`
}

// MarketIntel holds the market-sizing stage output. TAM/SAM/SOM are display
// strings: the normalizer collapses whatever nested shape the model returned
// into a single string via CoerceDisplayValue.
type MarketIntel struct {
	TAM           string             `json:"TAM"`
	SAM           string             `json:"SAM"`
	SOM           string             `json:"SOM"`
	Trends        []TrendRecord      `json:"trends"`
	Competitors   []CompetitorRecord `json:"competitors"`
	FundingNotes  []string           `json:"funding_notes"`
	MarketSummary string             `json:"market_summary"`
}

type ResourceEstimate struct {
	Time     string `json:"time"`
	TeamSize string `json:"team_size"`
	Budget   string `json:"budget"`
}

type FeasibilityAssessment struct {
	Roadmap            []string         `json:"roadmap"`
	Resources          ResourceEstimate `json:"resources"`
	Risks              []string         `json:"risks"`
	FeasibilityScore   int              `json:"feasibility_score"`
	FeasibilitySummary string           `json:"feasibility_summary"`
}

// InvestorCandidate is a static record from the candidate store. TicketSize
// keeps the source encoding (e.g. "$100k-500k"); ParseTicketSize turns it
// into a numeric range at scoring time.
type InvestorCandidate struct {
	Name       string   `json:"name"`
	Focus      []string `json:"focus"`
	Stage      string   `json:"stage"`
	Geography  string   `json:"geo"`
	TicketSize string   `json:"ticket_size"`
}

type InvestorMatch struct {
	InvestorCandidate
	MatchScore float64 `json:"match_score"`
}

type MatchStatistics struct {
	TotalMatches          int     `json:"total_matches"`
	HighConfidenceMatches int     `json:"high_confidence_matches"`
	AverageMatchScore     float64 `json:"average_match_score"`
}

type StakeholderReport struct {
	TeamRoles          []string        `json:"team_roles"`
	InvestorMatches    []InvestorMatch `json:"investor_matches"`
	MatchStatistics    MatchStatistics `json:"match_statistics"`
	StakeholderSummary string          `json:"stakeholder_summary"`
}

type Slide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type PitchDeck struct {
	Slides           []Slide        `json:"slides"`
	ExecutiveSummary string         `json:"executive_summary"`
	KeyMetrics       map[string]any `json:"key_metrics"`
	DeckSummary      string         `json:"deck_summary"`
}

// StageResult wraps one stage's structured output with its narration. Output
// is immutable once the slot completes.
type StageResult struct {
	AgentName string      `json:"agent_name"`
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	Output    any         `json:"output"`
	Narration string      `json:"narration"`
	Timestamp time.Time   `json:"timestamp"`
}

type RunRequest struct {
	RunID      string `json:"run_id"`
	SourceText string `json:"source_text"`
}

type RunMetadata struct {
	StagesExecuted []string  `json:"stages_executed"`
	StageFailed    string    `json:"stage_failed,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	InputTruncated bool      `json:"input_truncated"`
}

type RunResult struct {
	Request     RunRequest
	Status      RunStatus
	Stages      []StageResult
	Profile     ProjectProfile
	Research    *ResearchAnalysis
	Market      *MarketIntel
	Feasibility *FeasibilityAssessment
	Stakeholder *StakeholderReport
	Deck        *PitchDeck
	Metadata    RunMetadata
}

// ResponseEnvelope is the shape handed to the report renderer and persisted
// by the run store: stage outputs keyed by stage name plus the deck markdown.
type ResponseEnvelope struct {
	RunID        string         `json:"run_id"`
	Status       RunStatus      `json:"status"`
	StageResults []StageResult  `json:"stage_results"`
	StageOutputs map[string]any `json:"stage_outputs"`
	KeyMetrics   map[string]any `json:"key_metrics"`
	DeckMarkdown string         `json:"deck_markdown"`
	Metadata     RunMetadata    `json:"run_metadata"`
	Profile      ProjectProfile `json:"project_profile"`
}

// CleanText collapses runs of whitespace and drops fragment lines that PDF
// extraction tends to leave behind.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) > 10 {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// ValidateSourceText reports whether the text is substantial enough to
// analyze: at least MinSourceChars characters and MinSourceWords words.
func ValidateSourceText(text string) bool {
	if len(strings.TrimSpace(text)) < MinSourceChars {
		return false
	}
	return len(strings.Fields(text)) >= MinSourceWords
}
