package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/policysage/policysage-api/internal/database"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/usecase/query"
	"github.com/yuin/goldmark"
)

//go:embed templates/index.html
var templateFS embed.FS

// QueryService answers questions for the HTTP layer.
type QueryService interface {
	Ask(ctx context.Context, question string) model.ChatTurn
	Stream(ctx context.Context, question string, events chan<- query.Event)
}

// Server holds the dependencies for the HTTP API server
type Server struct {
	queries   QueryService
	documents database.DocumentRegistry
	metrics   http.Handler
	page      *template.Template
	markdown  goldmark.Markdown
	title     string
}

// NewServer initializes the HTTP server. documents and metrics may be nil,
// in which case their routes are not registered.
func NewServer(queries QueryService, documents database.DocumentRegistry, metrics http.Handler) *Server {
	return &Server{
		queries:   queries,
		documents: documents,
		metrics:   metrics,
		page:      template.Must(template.ParseFS(templateFS, "templates/index.html")),
		markdown:  goldmark.New(),
		title:     "Policy Assistant",
	}
}

// RegisterRoutes registers all endpoints with a new ServeMux
func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	mux.HandleFunc("POST /api/v1/query/stream", s.handleQueryStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.documents != nil {
		mux.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return mux
}

type QueryRequest struct {
	Query string `json:"query"`
}

// pageView is the template model. Answered is false in the Idle state.
type pageView struct {
	Title    string
	Question string
	Answered bool
	Answer   template.HTML
	Failure  *model.Failure
	Details  []template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := pageView{Title: s.title}

	if question := r.URL.Query().Get("q"); strings.TrimSpace(question) != "" {
		turn := s.queries.Ask(r.Context(), question)
		view.Question = turn.Question
		view.Answered = true
		view.Answer = s.render(turn.Answer)
		view.Failure = turn.Failure
		for _, d := range turn.Details {
			view.Details = append(view.Details, s.render(d))
		}
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, view); err != nil {
		log.Printf("[Server] Failed to render page: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// render converts markdown to HTML. Raw HTML in the source is not passed
// through, so model output cannot inject markup.
func (s *Server) render(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		log.Printf("[Server] Markdown conversion failed: %v", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return "", false
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "Query field is required", http.StatusBadRequest)
		return "", false
	}
	return req.Query, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	question, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	turn := s.queries.Ask(r.Context(), question)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(turn); err != nil {
		log.Printf("[Server] Failed to encode turn %s: %v", turn.ID, err)
	}
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	question, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Set headers for Server-Sent Events (SSE)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := make(chan query.Event)
	go s.queries.Stream(r.Context(), question, events)

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("[Server] Failed to marshal event: %v", err)
			continue
		}

		_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
		flusher.Flush()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type documentResponse struct {
	Name        string `json:"name"`
	FilePath    string `json:"file_path"`
	Hash        string `json:"hash"`
	Profile     string `json:"profile"`
	RecordCount int    `json:"record_count"`
	UpdatedAt   string `json:"updated_at"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.ListDocuments(r.Context())
	if err != nil {
		log.Printf("[Server] Failed to list documents: %v", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse{
			Name:        d.Name,
			FilePath:    d.FilePath,
			Hash:        fmt.Sprintf("%x", d.FileHash),
			Profile:     d.Profile,
			RecordCount: d.RecordCount,
			UpdatedAt:   d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
