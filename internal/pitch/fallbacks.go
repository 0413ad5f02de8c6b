package pitch

// Stage fallback records. Substituted by the normalizer whenever a model
// response cannot be parsed, so every downstream stage always receives a
// record of the expected shape. The canned*JSON constants are the happy-path
// twins served by CannedCaller in demo mode.

func researchFallback() map[string]any {
	return map[string]any{
		"innovations": []any{
			"Novel machine learning algorithm for pattern recognition",
			"Advanced materials with enhanced properties",
			"Innovative computational approach to optimization",
		},
		"readiness_level":     float64(5),
		"application_domains": []any{"AI/ML", "Healthcare", "Manufacturing"},
		"technical_summary":   "Breakthrough research with strong commercial potential",
	}
}

func marketFallback() map[string]any {
	return map[string]any{
		"TAM": "$500B",
		"SAM": "$50B",
		"SOM": "$5B",
		"trends": []any{
			"Rapid digital transformation across industries",
			"Increased focus on AI-powered solutions",
			"Growing demand for automation",
		},
		"competitors": []any{"Google", "Microsoft", "Amazon", "IBM", "OpenAI"},
	}
}

func feasibilityFallback() map[string]any {
	return map[string]any{
		"roadmap": []any{
			"Complete technical validation",
			"Develop MVP prototype",
			"Conduct market validation",
			"Refine product based on feedback",
			"Scale manufacturing",
			"Launch commercial product",
		},
		"resources": map[string]any{
			"time":      "18 months",
			"team_size": "8 people",
			"budget":    "$1.5M",
		},
		"risks": []any{
			"Technical complexity challenges",
			"Market competition",
			"Regulatory requirements",
			"Funding constraints",
			"Talent acquisition",
		},
		"feasibility_score": float64(7),
	}
}

func deckFallback() map[string]any {
	return map[string]any{
		"slides": []any{
			map[string]any{"title": "Problem & Opportunity", "content": "Addressing critical challenges in target market with innovative solutions."},
			map[string]any{"title": "Core Innovation", "content": "Breakthrough technology with clear competitive advantages."},
			map[string]any{"title": "Market Landscape", "content": "Large addressable market with strong growth potential."},
			map[string]any{"title": "Competitive Advantage", "content": "Unique positioning with sustainable competitive moats."},
			map[string]any{"title": "Feasibility & Roadmap", "content": "Clear development path with realistic resource requirements."},
			map[string]any{"title": "Business Potential", "content": "Strong revenue potential with clear monetization strategy."},
			map[string]any{"title": "Next Steps & Investor Recommendations", "content": "Ready for funding with identified investor matches."},
		},
	}
}

const cannedResearchJSON = `{
  "innovations": [
    "Novel machine learning algorithm for pattern recognition",
    "Advanced materials with enhanced properties",
    "Innovative computational approach to optimization"
  ],
  "readiness_level": 6,
  "application_domains": ["AI/ML", "Healthcare", "Manufacturing"],
  "technical_summary": "Breakthrough research with strong commercial potential"
}`

const cannedMarketJSON = `{
  "TAM": "$500B",
  "SAM": "$50B",
  "SOM": "$5B",
  "trends": [
    "Rapid digital transformation across industries",
    "Increased focus on AI-powered solutions",
    "Growing demand for automation"
  ],
  "competitors": ["Google", "Microsoft", "Amazon", "IBM", "OpenAI"]
}`

const cannedFeasibilityJSON = `{
  "roadmap": [
    "Complete technical validation",
    "Develop MVP prototype",
    "Conduct market validation",
    "Refine product based on feedback",
    "Scale manufacturing",
    "Launch commercial product"
  ],
  "resources": {
    "time": "18 months",
    "team_size": "8 people",
    "budget": "$1.5M"
  },
  "risks": [
    "Technical complexity challenges",
    "Market competition",
    "Regulatory requirements",
    "Funding constraints",
    "Talent acquisition"
  ],
  "feasibility_score": 7
}`

const cannedDeckJSON = `{
  "slides": [
    {"title": "Problem & Opportunity", "content": "Addressing critical challenges in target market with innovative solutions."},
    {"title": "Core Innovation", "content": "Breakthrough technology with clear competitive advantages."},
    {"title": "Market Landscape", "content": "Large addressable market with strong growth potential."},
    {"title": "Competitive Advantage", "content": "Unique positioning with sustainable competitive moats."},
    {"title": "Feasibility & Roadmap", "content": "Clear development path with realistic resource requirements."},
    {"title": "Business Potential", "content": "Strong revenue potential with clear monetization strategy."},
    {"title": "Next Steps & Investor Recommendations", "content": "Ready for funding with identified investor matches."}
  ]
}`
