package pitch

import (
	"context"
	"log"
	"strings"
	"time"
)

// StageExecutor drives one model call per stage. Transient transport failures
// get a bounded retry; everything else degrades to the stage fallback. The
// executor never returns an error: a stage always gets a record of the shape
// it declared.
type StageExecutor struct {
	caller LLMCaller
	sleep  func(time.Duration)
}

func NewStageExecutor(caller LLMCaller) *StageExecutor {
	return &StageExecutor{caller: caller, sleep: time.Sleep}
}

func (e *StageExecutor) Generate(ctx context.Context, stageName, prompt string, fallback map[string]any) map[string]any {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := e.caller.GenerateJSON(ctx, prompt)
		if err != nil {
			class := classifyTransportError(err)
			if (class == failureTimeout || class == failureRateLimit || class == failureServer) && attempt < maxAttempts {
				log.Printf("pitch stage transport retry stage=%s attempt=%d err=%v", stageName, attempt, err)
				e.sleep(backoffDelay(attempt))
				continue
			}
			log.Printf("pitch stage transport failure stage=%s err=%v fallback=substituted", stageName, err)
			return fallback
		}
		if strings.TrimSpace(raw) == "" {
			log.Printf("pitch stage empty response stage=%s fallback=substituted", stageName)
			return fallback
		}
		record := Normalize(raw, nil)
		if record == nil {
			log.Printf("pitch stage unparsable response stage=%s fallback=substituted", stageName)
			return fallback
		}
		return record
	}
	return fallback
}
