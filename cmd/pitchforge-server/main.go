package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dlevin/pitchforge/internal/deck"
	"github.com/dlevin/pitchforge/internal/pitch"
	"github.com/dlevin/pitchforge/internal/runstore"
	"github.com/dlevin/pitchforge/internal/server"
)

func main() {
	var (
		addr           = flag.String("addr", ":8080", "HTTP listen address")
		dbPath         = flag.String("db", "./pitchforge.db", "Path to the SQLite run store")
		candidatesPath = flag.String("candidates", "", "Path to an investor candidates JSON file (default: built-in list)")
		demo           = flag.Bool("demo", false, "Run with canned AI responses instead of the Anthropic API")
	)
	flag.Parse()

	var caller pitch.LLMCaller
	if *demo {
		caller = pitch.NewCannedCaller()
	} else {
		var err error
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
	} else {
		log.Print("TAVILY_API_KEY not set, market intelligence runs without web search")
	}

	candidates := pitch.DefaultCandidates()
	if *candidatesPath != "" {
		var err error
		candidates, err = pitch.LoadCandidates(*candidatesPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	store, err := runstore.Open(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if shutdown, err := setupTracing(ctx); err != nil {
		log.Printf("tracing disabled: %v", err)
	} else if shutdown != nil {
		defer shutdown(context.Background())
	}

	runner := pitch.NewLLMStageRunner(pitch.NewStageExecutor(caller), searcher, candidates)
	pipeline := pitch.NewPipeline(runner)
	handler := server.New(pipeline, store, deck.NewChromiumPDFRenderer()).Handler()

	log.Printf("pitchforge-server listening on %s (demo=%v, db=%s, candidates=%d)", *addr, *demo, *dbPath, len(candidates))
	srv := &http.Server{Addr: *addr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// setupTracing installs an OTLP trace exporter when OTEL_EXPORTER_OTLP_ENDPOINT
// is set. Without it the pipeline's spans go to the default no-op provider.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) == "" {
		return nil, nil
	}
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
