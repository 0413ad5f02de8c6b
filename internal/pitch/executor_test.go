package pitch

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedCaller struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedCaller) GenerateJSON(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func newTestExecutor(caller LLMCaller) (*StageExecutor, *[]time.Duration) {
	slept := []time.Duration{}
	e := NewStageExecutor(caller)
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func TestGenerateParsesResponse(t *testing.T) {
	caller := &scriptedCaller{responses: []string{`{"TAM":"$10B"}`}}
	e, _ := newTestExecutor(caller)
	got := e.Generate(context.Background(), StageMarket, "prompt", marketFallback())
	if got["TAM"] != "$10B" {
		t.Fatalf("unexpected record: %#v", got)
	}
}

func TestGenerateProseDegradesToFallback(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"I cannot produce JSON for that."}}
	e, _ := newTestExecutor(caller)
	fallback := marketFallback()
	got := e.Generate(context.Background(), StageMarket, "prompt", fallback)
	if got["TAM"] != "$500B" {
		t.Fatalf("expected fallback, got %#v", got)
	}
	if caller.calls != 1 {
		t.Fatalf("prose must not be retried, calls=%d", caller.calls)
	}
}

func TestGenerateEmptyResponseDegradesToFallback(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"   "}}
	e, _ := newTestExecutor(caller)
	got := e.Generate(context.Background(), StageResearch, "prompt", researchFallback())
	if got["readiness_level"] != float64(5) {
		t.Fatalf("expected fallback, got %#v", got)
	}
}

func TestGenerateRetriesTransientTransportFailure(t *testing.T) {
	caller := &scriptedCaller{
		errs:      []error{errors.New("status code: 503 server error"), nil},
		responses: []string{"", `{"feasibility_score":8}`},
	}
	e, slept := newTestExecutor(caller)
	got := e.Generate(context.Background(), StageFeasibility, "prompt", feasibilityFallback())
	if got["feasibility_score"] != float64(8) {
		t.Fatalf("unexpected record: %#v", got)
	}
	if len(*slept) != 1 {
		t.Fatalf("expected one backoff, got %v", *slept)
	}
}

func TestGeneratePersistentRateLimitDegradesToFallback(t *testing.T) {
	err429 := errors.New("request failed: 429 too many requests")
	caller := &scriptedCaller{errs: []error{err429, err429, err429}}
	e, slept := newTestExecutor(caller)
	got := e.Generate(context.Background(), StageMarket, "prompt", marketFallback())
	if got["SAM"] != "$50B" {
		t.Fatalf("expected fallback, got %#v", got)
	}
	if caller.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", caller.calls)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected 2 backoffs, got %v", *slept)
	}
}

func TestGenerateClientErrorNotRetried(t *testing.T) {
	caller := &scriptedCaller{errs: []error{errors.New("status code: 401 unauthorized")}}
	e, slept := newTestExecutor(caller)
	got := e.Generate(context.Background(), StageResearch, "prompt", researchFallback())
	if len(got["innovations"].([]any)) != 3 {
		t.Fatalf("expected fallback, got %#v", got)
	}
	if len(*slept) != 0 {
		t.Fatalf("client errors must not back off, got %v", *slept)
	}
}

func TestGenerateFencedResponse(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"Here you go:\n```json\n{\"SOM\":\"$1B\"}\n```"}}
	e, _ := newTestExecutor(caller)
	got := e.Generate(context.Background(), StageMarket, "prompt", marketFallback())
	if got["SOM"] != "$1B" {
		t.Fatalf("unexpected record: %#v", got)
	}
}
