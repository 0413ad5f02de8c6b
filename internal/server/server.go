package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dlevin/pitchforge/internal/pitch"
	"github.com/dlevin/pitchforge/internal/runstore"
)

// DeckRenderer turns a run envelope into PDF bytes.
type DeckRenderer interface {
	Render(ctx context.Context, env pitch.ResponseEnvelope) ([]byte, error)
}

type Server struct {
	pipeline *pitch.Pipeline
	store    *runstore.Store
	renderer DeckRenderer
	now      func() time.Time
}

func New(pipeline *pitch.Pipeline, store *runstore.Store, renderer DeckRenderer) *Server {
	return &Server{pipeline: pipeline, store: store, renderer: renderer, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/runs", s.handleRuns)
	mux.HandleFunc("/v1/runs/", s.handleRunByID)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type submitRequest struct {
	RunID      string `json:"run_id"`
	SourceText string `json:"source_text"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		writeError(w, 400, "failed to read request body")
		return
	}
	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, 400, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SourceText) == "" {
		writeError(w, 400, "source_text is required")
		return
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = fmt.Sprintf("RUN-%d", s.now().UTC().UnixNano())
	}

	result, err := s.pipeline.Run(r.Context(), pitch.RunRequest{RunID: runID, SourceText: req.SourceText})
	if err != nil {
		writeError(w, 422, err.Error())
		return
	}
	env := pitch.BuildResponse(result)
	if err := s.store.Save(env, len(req.SourceText)); err != nil {
		log.Printf("pitchforge-server save run failed run_id=%s err=%v", runID, err)
		writeError(w, 500, "failed to persist run")
		return
	}
	writeJSON(w, 200, env)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	runs, err := s.store.List(limit)
	if err != nil {
		log.Printf("pitchforge-server list runs failed err=%v", err)
		writeError(w, 500, "failed to list runs")
		return
	}
	writeJSON(w, 200, map[string]any{"runs": runs})
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == "" {
		writeError(w, 400, "run id is required")
		return
	}
	if id, ok := strings.CutSuffix(rest, "/deck.pdf"); ok {
		s.handleDeckPDF(w, r, id)
		return
	}
	env, err := s.store.Get(rest)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, 404, "run not found")
		return
	}
	if err != nil {
		log.Printf("pitchforge-server get run failed run_id=%s err=%v", rest, err)
		writeError(w, 500, "failed to load run")
		return
	}
	writeJSON(w, 200, env)
}

func (s *Server) handleDeckPDF(w http.ResponseWriter, r *http.Request, runID string) {
	env, err := s.store.Get(runID)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, 404, "run not found")
		return
	}
	if err != nil {
		writeError(w, 500, "failed to load run")
		return
	}
	if strings.TrimSpace(env.DeckMarkdown) == "" {
		writeError(w, 409, "run has no pitch deck")
		return
	}
	if s.renderer == nil {
		writeError(w, 503, "PDF rendering not configured")
		return
	}
	pdf, err := s.renderer.Render(r.Context(), env)
	if err != nil {
		log.Printf("pitchforge-server render deck failed run_id=%s err=%v", runID, err)
		writeError(w, 500, "failed to render deck PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"-deck.pdf"))
	_, _ = w.Write(pdf)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}
