package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/policysage/policysage-api/internal/config"
	"github.com/policysage/policysage-api/internal/database/bunstore"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/infrastructure/llm"
	"github.com/policysage/policysage-api/internal/infrastructure/metrics"
	neo4jpkg "github.com/policysage/policysage-api/internal/infrastructure/neo4j"
	"github.com/policysage/policysage-api/internal/infrastructure/resilience"
	httpserver "github.com/policysage/policysage-api/internal/interface/http"
	"github.com/policysage/policysage-api/internal/usecase/query"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
}

func New(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
	}
}

// OpenGraph resolves the configured retrieval profile and connects to Neo4j.
func OpenGraph(ctx context.Context, cfg *config.Config) (*neo4jpkg.Client, model.Profile, error) {
	profile, err := cfg.RetrievalProfile()
	if err != nil {
		return nil, model.Profile{}, err
	}
	graph, err := neo4jpkg.NewClient(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, profile)
	if err != nil {
		return nil, model.Profile{}, err
	}
	return graph, profile, nil
}

// NewPipeline builds the question pipeline on top of an open graph client.
// The returned close function releases the model client.
func NewPipeline(ctx context.Context, cfg *config.Config, graph *neo4jpkg.Client, profile model.Profile, m *metrics.Metrics) (*query.Pipeline, func() error, error) {
	client, closeLLM, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	breaker := resilience.NewCircuitBreaker(client.Name(), cfg.BreakerThreshold, cfg.BreakerCooldown)
	answerer := query.NewAnswerer(client, breaker)

	log.Printf("[System] Pipeline ready (profile: %s, label: %s, model: %s)", profile.Name, profile.Label, client.Name())
	return query.NewPipeline(graph, profile, answerer, m), closeLLM, nil
}

// OpenRegistry opens the ingestion registry.
func OpenRegistry(ctx context.Context, cfg *config.Config) (*bunstore.BunStore, error) {
	return bunstore.OpenSQLite(ctx, cfg.RegistryDSN)
}

func (s *Server) Run() error {
	ctx := context.Background()

	// ==========================================
	// Initialize Dependencies (Dependency Injection)
	// ==========================================

	graph, profile, err := OpenGraph(ctx, s.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = graph.Close(ctx) }()

	m := metrics.New()
	pipeline, closeLLM, err := NewPipeline(ctx, s.cfg, graph, profile, m)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeLLM(); closeErr != nil {
			log.Printf("[Warning] Failed to close model client: %v", closeErr)
		}
	}()

	registry, err := OpenRegistry(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			log.Printf("[Warning] Failed to close registry: %v", closeErr)
		}
	}()

	// ==========================================
	// Initialize and Start HTTP Server
	// ==========================================

	apiServer := httpserver.NewServer(pipeline, registry, m.Handler())

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           apiServer.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[System] 🌐 Starting HTTP server on %s", s.cfg.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-stop:
	}
	log.Println("[System] 🛑 Shutdown signal received. Draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Error] HTTP shutdown error: %v", err)
	}

	log.Println("[System] ✅ Server stopped gracefully.")
	return nil
}
