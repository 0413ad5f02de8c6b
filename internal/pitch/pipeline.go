package pitch

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type slotState int

const (
	slotPending slotState = iota
	slotRunning
	slotDone
)

// slotMachine tracks the five ordered stage slots. Slot k+1 cannot start
// until slot k is done, and a done slot is never re-entered.
type slotMachine struct {
	states [5]slotState
}

func (m *slotMachine) start(idx int) error {
	if idx < 0 || idx >= len(m.states) {
		return fmt.Errorf("slot %d out of range", idx)
	}
	if m.states[idx] != slotPending {
		return fmt.Errorf("slot %d already %d", idx, m.states[idx])
	}
	if idx > 0 && m.states[idx-1] != slotDone {
		return fmt.Errorf("slot %d started before slot %d done", idx, idx-1)
	}
	m.states[idx] = slotRunning
	return nil
}

func (m *slotMachine) finish(idx int) {
	m.states[idx] = slotDone
}

func (m *slotMachine) complete() bool {
	for _, s := range m.states {
		if s != slotDone {
			return false
		}
	}
	return true
}

type StageProgressFn func(stage, message string)

type Pipeline struct {
	runner StageRunner
	tracer trace.Tracer
	now    func() time.Time
}

func NewPipeline(runner StageRunner) *Pipeline {
	return &Pipeline{
		runner: runner,
		tracer: otel.Tracer("pitchforge/pipeline"),
		now:    time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	return p.RunWithProgress(ctx, req, nil)
}

// RunWithProgress executes the five stages strictly in order. Input
// validation failures return an error before any stage runs. A fatal stage
// failure ends the run with status "failed" and the partial stage list
// retained; everything else degrades inside the stages and the run
// completes.
func (p *Pipeline) RunWithProgress(ctx context.Context, req RunRequest, progress StageProgressFn) (RunResult, error) {
	text := CleanText(req.SourceText)
	truncated := false
	if len(text) > MaxSourceChars {
		text = text[:MaxSourceChars]
		truncated = true
	}
	if !ValidateSourceText(text) {
		return RunResult{}, fmt.Errorf("source text too short: need at least %d characters and %d words", MinSourceChars, MinSourceWords)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", req.RunID),
		attribute.Int("source.chars", len(text)),
	))
	defer span.End()

	result := RunResult{
		Request: req,
		Status:  RunComplete,
		Metadata: RunMetadata{
			StartedAt:      p.now().UTC(),
			InputTruncated: truncated,
		},
	}
	slots := &slotMachine{}

	var research ResearchAnalysis
	_ = p.runStage(ctx, slots, 0, &result, progress, func(ctx context.Context) (any, string, error) {
		research = p.runner.RunResearch(ctx, text)
		return research, research.AnalysisSummary, nil
	})
	result.Research = &research
	result.Profile = ProjectProfile{
		Innovations:    research.Innovations,
		ReadinessLevel: research.ReadinessLevel,
		Domains:        research.Domains,
		Geography:      "Global",
	}

	var market MarketIntel
	_ = p.runStage(ctx, slots, 1, &result, progress, func(ctx context.Context) (any, string, error) {
		market = p.runner.RunMarket(ctx, research)
		return market, market.MarketSummary, nil
	})
	result.Market = &market

	var feasibility FeasibilityAssessment
	_ = p.runStage(ctx, slots, 2, &result, progress, func(ctx context.Context) (any, string, error) {
		feasibility = p.runner.RunFeasibility(ctx, research, market)
		return feasibility, feasibility.FeasibilitySummary, nil
	})
	result.Feasibility = &feasibility
	result.Profile.FundingNeeds = ParseBudgetAmount(feasibility.Resources.Budget)

	var stakeholder StakeholderReport
	fatal := p.runStage(ctx, slots, 3, &result, progress, func(ctx context.Context) (any, string, error) {
		s, err := p.runner.RunStakeholder(ctx, result.Profile)
		if err != nil {
			return nil, "", err
		}
		stakeholder = s
		return stakeholder, stakeholder.StakeholderSummary, nil
	})
	if fatal != nil {
		result.Status = RunFailed
		result.Metadata.StageFailed = StageStakeholder
		result.Metadata.FailureReason = fatal.Error()
		p.finalize(&result)
		log.Printf("pitch-pipeline run failed run_id=%s stage=%s err=%v", req.RunID, StageStakeholder, fatal)
		return result, nil
	}
	result.Stakeholder = &stakeholder

	var deck PitchDeck
	_ = p.runStage(ctx, slots, 4, &result, progress, func(ctx context.Context) (any, string, error) {
		deck = p.runner.RunPitch(ctx, PitchInput{
			Research:    research,
			Market:      market,
			Feasibility: feasibility,
			Stakeholder: stakeholder,
		})
		return deck, deck.DeckSummary, nil
	})
	result.Deck = &deck

	if !slots.complete() {
		result.Status = RunFailed
		result.Metadata.FailureReason = "pipeline ended with pending slots"
	}
	p.finalize(&result)
	return result, nil
}

// runStage drives one slot through running to done, records its StageResult
// and emits progress. A returned error is fatal to the run; the slot stays
// un-done so the machine reports incomplete.
func (p *Pipeline) runStage(ctx context.Context, slots *slotMachine, idx int, result *RunResult, progress StageProgressFn, fn func(context.Context) (any, string, error)) error {
	stage := StageOrder[idx]
	if err := slots.start(idx); err != nil {
		return err
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(attribute.String("stage", stage)))
	defer span.End()

	output, narration, err := fn(ctx)
	ts := p.now().UTC()
	if err != nil {
		result.Stages = append(result.Stages, StageResult{
			AgentName: agentName(stage),
			Stage:     stage,
			Status:    StageFailed,
			Narration: err.Error(),
			Timestamp: ts,
		})
		return err
	}
	result.Stages = append(result.Stages, StageResult{
		AgentName: agentName(stage),
		Stage:     stage,
		Status:    StageCompleted,
		Output:    output,
		Narration: narration,
		Timestamp: ts,
	})
	result.Metadata.StagesExecuted = append(result.Metadata.StagesExecuted, stage)
	slots.finish(idx)
	if progress != nil {
		progress(stage, narration)
	}
	log.Printf("pitch-pipeline stage done run_id=%s stage=%s narration=%q", result.Request.RunID, stage, narration)
	return nil
}

func (p *Pipeline) finalize(result *RunResult) {
	result.Metadata.CompletedAt = p.now().UTC()
}

func agentName(stage string) string {
	switch stage {
	case StageResearch:
		return "research-agent"
	case StageMarket:
		return "market-agent"
	case StageFeasibility:
		return "feasibility-agent"
	case StageStakeholder:
		return "stakeholder-agent"
	case StagePitch:
		return "pitch-agent"
	default:
		return stage
	}
}
