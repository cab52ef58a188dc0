package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"kabu-agent/cache"
	"kabu-agent/database"
	"kabu-agent/pipeline"
	"kabu-agent/realtime"
)

// Server handles HTTP API requests
type Server struct {
	repo   *database.StockRepository
	orch   *pipeline.Orchestrator
	redis  *cache.RedisClient
	broker *realtime.Broker
}

// NewServer creates a new API server instance
func NewServer(repo *database.StockRepository, orch *pipeline.Orchestrator, redis *cache.RedisClient, broker *realtime.Broker) *Server {
	return &Server{
		repo:   repo,
		orch:   orch,
		redis:  redis,
		broker: broker,
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Agent routes: recommended actions and pipeline control
	mux.HandleFunc("GET /agent/today-actions", s.handleTodayActions)
	mux.HandleFunc("POST /agent/run-pipeline", s.handleRunPipeline)
	mux.HandleFunc("GET /agent/pipeline-status", s.handlePipelineStatus)
	mux.HandleFunc("GET /agent/pipeline-events", s.handlePipelineEvents) // WebSocket
	mux.HandleFunc("POST /agent/cancel-pipeline", s.handleCancelPipeline)

	// Signal routes
	mux.HandleFunc("GET /signals/buy", s.handleBuySignals)
	mux.HandleFunc("GET /signals/sell", s.handleSellSignals)

	// Screening route
	mux.HandleFunc("POST /screening", s.handleScreening)

	// Stock routes
	mux.HandleFunc("GET /stocks", s.handleListStocks)
	mux.HandleFunc("GET /stocks/{code}/plan", s.handleStockPlan)
	mux.HandleFunc("GET /stocks/{code}/indicators", s.handleStockIndicators)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
