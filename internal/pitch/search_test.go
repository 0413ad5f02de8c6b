package pitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTavilyServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *TavilyClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewTavilyClient(TavilyConfig{APIKey: "test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	return srv, client
}

func TestTavilySearch(t *testing.T) {
	var gotBody map[string]any
	_, client := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{
			{"title": "Report", "content": "The market is $12B.", "url": "https://example.com"},
		}})
	})

	results, err := client.Search(context.Background(), "healthcare market size")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Title != "Report" {
		t.Fatalf("unexpected results %#v", results)
	}
	if gotBody["query"] != "healthcare market size" {
		t.Fatalf("query not forwarded: %#v", gotBody)
	}
	if gotBody["api_key"] != "test" {
		t.Fatalf("api key not forwarded: %#v", gotBody)
	}
}

func TestTavilySearchEmptyResults(t *testing.T) {
	_, client := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	results, err := client.Search(context.Background(), "obscure query")
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", results)
	}
}

func TestTavilySearchRetriesServerError(t *testing.T) {
	calls := 0
	_, client := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"ok","content":"c","url":"u"}]}`))
	})
	results, err := client.Search(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 || len(results) != 1 {
		t.Fatalf("calls=%d results=%d", calls, len(results))
	}
}

func TestTavilySearchAuthFailureNotRetried(t *testing.T) {
	calls := 0
	_, client := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("auth failures must not be retried, calls=%d", calls)
	}
}

func TestNewTavilyClientRequiresKey(t *testing.T) {
	if _, err := NewTavilyClient(TavilyConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestCategoryQuery(t *testing.T) {
	research := ResearchAnalysis{
		Innovations: []string{"protein folding model"},
		Domains:     []string{"Healthcare"},
	}
	for _, cat := range SearchCategories {
		q := categoryQuery(cat, research)
		if !strings.Contains(q, "Healthcare") {
			t.Errorf("category %s: query %q missing domain", cat, q)
		}
	}
	if q := categoryQuery(CategoryMarketSize, ResearchAnalysis{}); !strings.Contains(q, "technology") {
		t.Errorf("empty research should fall back to generic domain, got %q", q)
	}
}

func TestDigestResults(t *testing.T) {
	if got := digestResults(nil); got != "" {
		t.Fatalf("expected empty digest, got %q", got)
	}
	got := digestResults([]SearchResult{{Title: "T", Content: "C"}})
	if !strings.Contains(got, "T: C") {
		t.Fatalf("unexpected digest %q", got)
	}
}
