package pitch

import (
	"context"
	"strings"
	"testing"
)

func buildTestResult(t *testing.T) RunResult {
	t.Helper()
	runner := runnerWith(NewCannedCaller(), nil, DefaultCandidates())
	p := NewPipeline(runner)
	result, err := p.Run(context.Background(), RunRequest{RunID: "run-1", SourceText: validSourceText})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestBuildResponseKeysOutputsByStage(t *testing.T) {
	result := buildTestResult(t)
	env := BuildResponse(result)
	if env.RunID != "run-1" || env.Status != RunComplete {
		t.Fatalf("envelope header %#v", env)
	}
	for _, stage := range StageOrder {
		if _, ok := env.StageOutputs[stage]; !ok {
			t.Errorf("missing output for stage %s", stage)
		}
	}
	if len(env.StageResults) != 5 {
		t.Fatalf("stage results %d", len(env.StageResults))
	}
	if env.KeyMetrics["tam"] != "$500B" {
		t.Fatalf("key metrics %#v", env.KeyMetrics)
	}
}

func TestBuildResponseFailedRunOmitsFailedOutputs(t *testing.T) {
	runner := runnerWith(NewCannedCaller(), nil, nil)
	p := NewPipeline(runner)
	result, err := p.Run(context.Background(), RunRequest{RunID: "run-2", SourceText: validSourceText})
	if err != nil {
		t.Fatal(err)
	}
	env := BuildResponse(result)
	if env.Status != RunFailed {
		t.Fatalf("status %s", env.Status)
	}
	if _, ok := env.StageOutputs[StageStakeholder]; ok {
		t.Fatal("failed stage must not contribute an output")
	}
	if _, ok := env.StageOutputs[StageResearch]; !ok {
		t.Fatal("completed stages keep their outputs")
	}
	if env.DeckMarkdown != "" {
		t.Fatal("no deck markdown without a deck")
	}
}

func TestDeckMarkdown(t *testing.T) {
	result := buildTestResult(t)
	md := buildDeckMarkdown(result)
	for _, want := range []string{
		"# Investor Pitch",
		"## Executive Summary",
		"| TAM | $500B |",
		"## Problem & Opportunity",
		"## Next Steps & Investor Recommendations",
		"## Investor Matches",
		"## Recommended Team",
		"## Roadmap",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
