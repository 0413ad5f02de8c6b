package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dlevin/pitchforge/internal/pitch"
)

func main() {
	var (
		input          = flag.String("input", "", "Path to the research document text file (required)")
		runID          = flag.String("run-id", "", "Run ID (default: derived from the input file name)")
		candidatesPath = flag.String("candidates", "", "Path to an investor candidates JSON file (default: built-in list)")
		demo           = flag.Bool("demo", false, "Run with canned AI responses instead of the Anthropic API")
		deckOnly       = flag.Bool("deck-only", false, "Print only the deck markdown instead of the full JSON envelope")
	)
	flag.Parse()

	if strings.TrimSpace(*input) == "" {
		log.Fatal("--input is required")
	}
	source, err := os.ReadFile(*input)
	if err != nil {
		log.Fatal(err)
	}

	var caller pitch.LLMCaller
	if *demo {
		caller = pitch.NewCannedCaller()
	} else {
		caller, err = pitch.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Fatal(err)
		}
	}

	var searcher pitch.Searcher
	if key := strings.TrimSpace(os.Getenv("TAVILY_API_KEY")); key != "" {
		tavily, err := pitch.NewTavilyClient(pitch.TavilyConfig{APIKey: key})
		if err != nil {
			log.Fatal(err)
		}
		searcher = tavily
	}

	candidates := pitch.DefaultCandidates()
	if *candidatesPath != "" {
		candidates, err = pitch.LoadCandidates(*candidatesPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	id := strings.TrimSpace(*runID)
	if id == "" {
		base := *input
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		id = strings.TrimSuffix(base, ".txt")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := pitch.NewLLMStageRunner(pitch.NewStageExecutor(caller), searcher, candidates)
	pipeline := pitch.NewPipeline(runner)

	result, err := pipeline.RunWithProgress(ctx, pitch.RunRequest{RunID: id, SourceText: string(source)},
		func(stage, message string) {
			log.Printf("pitch-pipeline stage=%s %s", stage, message)
		})
	if err != nil {
		log.Fatal(err)
	}

	env := pitch.BuildResponse(result)
	if *deckOnly {
		os.Stdout.WriteString(env.DeckMarkdown)
		return
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	os.Stdout.Write(append(out, '\n'))
}
