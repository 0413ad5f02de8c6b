package deck

import (
	"strings"
	"testing"
	"time"

	"github.com/dlevin/pitchforge/internal/pitch"
)

func TestBuildHTML(t *testing.T) {
	env := pitch.ResponseEnvelope{
		RunID:  "run-42",
		Status: pitch.RunComplete,
		Profile: pitch.ProjectProfile{
			ReadinessLevel: 6,
			Domains:        []string{"Healthcare"},
		},
		DeckMarkdown: "# Investor Pitch\n\n## Core Innovation\n\nBreakthrough.\n\n| Metric | Value |\n|---|---|\n| TAM | $500B |\n",
		Metadata: pitch.RunMetadata{
			CompletedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	html, err := buildHTML(env)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<strong>Run:</strong> run-42",
		"TRL 6/9",
		"Healthcare",
		"<h1", "Investor Pitch",
		"<h2", "Core Innovation",
		"<table>",
		"$500B",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestBuildHTMLEscapesMeta(t *testing.T) {
	env := pitch.ResponseEnvelope{RunID: "<script>x</script>"}
	html, err := buildHTML(env)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>x</script>") {
		t.Fatal("run id not escaped")
	}
}
