package pitch

import (
	"fmt"
	"strings"
)

// BuildResponse assembles the envelope consumed by the run store, the HTTP
// surface and the PDF renderer. Stage outputs are keyed by stage name;
// failed stages contribute no output entry.
func BuildResponse(result RunResult) ResponseEnvelope {
	outputs := make(map[string]any, len(result.Stages))
	for _, s := range result.Stages {
		if s.Status == StageCompleted {
			outputs[s.Stage] = s.Output
		}
	}
	env := ResponseEnvelope{
		RunID:        result.Request.RunID,
		Status:       result.Status,
		StageResults: result.Stages,
		StageOutputs: outputs,
		Metadata:     result.Metadata,
		Profile:      result.Profile,
	}
	if result.Deck != nil {
		env.KeyMetrics = result.Deck.KeyMetrics
		env.DeckMarkdown = buildDeckMarkdown(result)
	}
	return env
}

func buildDeckMarkdown(result RunResult) string {
	var sb strings.Builder
	sb.WriteString("# Investor Pitch\n\n")

	if result.Deck != nil && result.Deck.ExecutiveSummary != "" {
		sb.WriteString("## Executive Summary\n\n")
		sb.WriteString(result.Deck.ExecutiveSummary)
		sb.WriteString("\n\n")
	}

	if result.Market != nil {
		sb.WriteString("## Key Metrics\n\n")
		sb.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&sb, "| TAM | %s |\n", result.Market.TAM)
		fmt.Fprintf(&sb, "| SAM | %s |\n", result.Market.SAM)
		fmt.Fprintf(&sb, "| SOM | %s |\n", result.Market.SOM)
		if result.Research != nil {
			fmt.Fprintf(&sb, "| Readiness | TRL %d/9 |\n", result.Research.ReadinessLevel)
		}
		if result.Feasibility != nil {
			fmt.Fprintf(&sb, "| Feasibility | %d/10 |\n", result.Feasibility.FeasibilityScore)
		}
		sb.WriteString("\n")
	}

	if result.Deck != nil {
		for _, slide := range result.Deck.Slides {
			fmt.Fprintf(&sb, "## %s\n\n%s\n\n", slide.Title, slide.Content)
		}
	}

	if result.Stakeholder != nil {
		if len(result.Stakeholder.InvestorMatches) > 0 {
			sb.WriteString("## Investor Matches\n\n")
			sb.WriteString("| Investor | Stage | Geography | Ticket | Score |\n|---|---|---|---|---|\n")
			for _, m := range result.Stakeholder.InvestorMatches {
				fmt.Fprintf(&sb, "| %s | %s | %s | %s | %.2f |\n", m.Name, m.Stage, m.Geography, m.TicketSize, m.MatchScore)
			}
			sb.WriteString("\n")
		}
		if len(result.Stakeholder.TeamRoles) > 0 {
			sb.WriteString("## Recommended Team\n\n")
			for _, role := range result.Stakeholder.TeamRoles {
				fmt.Fprintf(&sb, "- %s\n", role)
			}
			sb.WriteString("\n")
		}
	}

	if result.Feasibility != nil && len(result.Feasibility.Roadmap) > 0 {
		sb.WriteString("## Roadmap\n\n")
		for i, step := range result.Feasibility.Roadmap {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
