package pitch

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Scoring weights. Each term is all-or-nothing except focus overlap, which
// scales with the share of the investor's focus areas the project covers.
const (
	weightFocus  = 0.4
	weightStage  = 0.3
	weightGeo    = 0.2
	weightTicket = 0.1
)

// ScoreCandidate computes the weighted fit between a project profile and one
// investor. The result is capped at 1.0.
func ScoreCandidate(profile ProjectProfile, candidate InvestorCandidate) float64 {
	score := 0.0

	if len(candidate.Focus) > 0 {
		overlap := 0
		domains := make(map[string]struct{}, len(profile.Domains))
		for _, d := range profile.Domains {
			domains[d] = struct{}{}
		}
		for _, f := range candidate.Focus {
			if _, ok := domains[f]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			score += weightFocus * float64(overlap) / float64(len(candidate.Focus))
		}
	}

	if stageFits(profile.ReadinessLevel, candidate.Stage) {
		score += weightStage
	}

	profileGeo := profile.Geography
	if profileGeo == "" {
		profileGeo = "Global"
	}
	if candidate.Geography == "Global" || profileGeo == candidate.Geography {
		score += weightGeo
	}

	if profile.FundingNeeds > 0 {
		if min, max, err := ParseTicketSize(candidate.TicketSize); err == nil {
			if min <= profile.FundingNeeds && profile.FundingNeeds <= max {
				score += weightTicket
			}
		}
	}

	return math.Min(score, 1.0)
}

// stageFits maps readiness level to the funding stages that take projects at
// that maturity. The 4-6 and >=7 bands deliberately overlap on Series A.
func stageFits(readiness int, stage string) bool {
	switch {
	case readiness <= 3:
		return stage == "Seed"
	case readiness <= 6:
		return stage == "Seed" || stage == "Series A"
	default:
		return stage == "Series A" || stage == "Series B"
	}
}

// ParseTicketSize converts a ticket string such as "$100k-500k" or "$1M-5M"
// into an inclusive numeric range. A single value yields a degenerate range.
func ParseTicketSize(ticket string) (int64, int64, error) {
	clean := strings.TrimSpace(ticket)
	clean = strings.ReplaceAll(clean, "$", "")
	clean = strings.ReplaceAll(clean, "k", "000")
	clean = strings.ReplaceAll(clean, "K", "000")
	clean = strings.ReplaceAll(clean, "M", "000000")
	if clean == "" {
		return 0, 0, fmt.Errorf("unparsable ticket size %q", ticket)
	}
	if lo, hi, ok := strings.Cut(clean, "-"); ok {
		min, err1 := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		max, err2 := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err1 != nil || err2 != nil {
			return 0, 0, fmt.Errorf("unparsable ticket size %q", ticket)
		}
		return min, max, nil
	}
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("unparsable ticket size %q", ticket)
	}
	return v, v, nil
}

// TopMatches scores every candidate and returns up to n matches in descending
// score order. Zero scores are excluded; ties keep the candidate list order.
// Scores are rounded to two decimals before ranking.
func TopMatches(profile ProjectProfile, candidates []InvestorCandidate, n int) []InvestorMatch {
	matches := make([]InvestorMatch, 0, len(candidates))
	for _, c := range candidates {
		score := math.Round(ScoreCandidate(profile, c)*100) / 100
		if score <= 0 {
			continue
		}
		matches = append(matches, InvestorMatch{InvestorCandidate: c, MatchScore: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

// TeamRecommendations suggests a team composition: two fixed roles, one
// domain expert chosen by the first matching domain rule, and one role banded
// on readiness.
func TeamRecommendations(profile ProjectProfile) []string {
	roles := []string{"Technical Founder", "Business Strategist"}

	roles = append(roles, domainExpertRole(profile.Domains))

	switch {
	case profile.ReadinessLevel <= 3:
		roles = append(roles, "Research Scientist")
	case profile.ReadinessLevel <= 6:
		roles = append(roles, "Product Manager")
	default:
		roles = append(roles, "Operations Manager")
	}
	return roles
}

var domainExpertRules = []struct {
	domains []string
	role    string
}{
	{[]string{"Healthcare", "Biotech", "Pharma"}, "Domain Expert (Healthcare)"},
	{[]string{"Sustainability", "CleanTech", "Energy"}, "Domain Expert (Climate)"},
	{[]string{"FinTech", "Blockchain"}, "Domain Expert (Finance)"},
	{[]string{"EdTech", "Education"}, "Domain Expert (Education)"},
}

func domainExpertRole(domains []string) string {
	for _, rule := range domainExpertRules {
		for _, d := range domains {
			for _, rd := range rule.domains {
				if d == rd {
					return rule.role
				}
			}
		}
	}
	return "Domain Expert"
}

// LoadCandidates reads an investor list from a JSON file. The list is loaded
// once at process start and treated as read-only.
func LoadCandidates(path string) ([]InvestorCandidate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var candidates []InvestorCandidate
	if err := json.Unmarshal(b, &candidates); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return candidates, nil
}

// DefaultCandidates is the built-in investor table used when no external
// candidate file is supplied.
func DefaultCandidates() []InvestorCandidate {
	return []InvestorCandidate{
		{Name: "Genesis Deep Tech Fund", Focus: []string{"AI/ML", "Robotics"}, Stage: "Seed", Geography: "Global", TicketSize: "$100k-500k"},
		{Name: "Helix Bio Ventures", Focus: []string{"Healthcare", "Biotech"}, Stage: "Series A", Geography: "US", TicketSize: "$1M-5M"},
		{Name: "Northstar Seed Partners", Focus: []string{"AI/ML", "Healthcare"}, Stage: "Seed", Geography: "US", TicketSize: "$250k"},
		{Name: "Terra Climate Capital", Focus: []string{"CleanTech", "Energy", "Sustainability"}, Stage: "Series A", Geography: "Global", TicketSize: "$2M-10M"},
		{Name: "Foundry Industrial Growth", Focus: []string{"Manufacturing", "Robotics"}, Stage: "Series B", Geography: "EU", TicketSize: "$5M-20M"},
		{Name: "Ledger Lane Capital", Focus: []string{"FinTech", "Blockchain"}, Stage: "Seed", Geography: "Global", TicketSize: "$100k-1M"},
		{Name: "Scholar's Gate Fund", Focus: []string{"EdTech", "AI/ML"}, Stage: "Seed", Geography: "Global", TicketSize: "$50k-250k"},
		{Name: "Meridian Frontier Fund", Focus: []string{"Healthcare", "AI/ML", "Manufacturing"}, Stage: "Series A", Geography: "Global", TicketSize: "$500k-3M"},
	}
}
