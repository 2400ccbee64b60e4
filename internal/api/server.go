package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"drawboard/pkg/interfaces"
)

// Registry exposes the connection counters the API reports without coupling
// to the concrete registry implementation
type Registry interface {
	Stats() map[string]int
}

// ARCHITECTURAL DISCOVERY: HTTP API layer is a pure interface between
// external clients and internal components; no business logic, only HTTP
// handling and JSON serialization
type Server struct {
	messageRouter interfaces.MessageRouter
	store         interfaces.StateStore
	registry      Registry
	router        *http.ServeMux
}

// NewServer initializes all dependencies and sets up routing
func NewServer(messageRouter interfaces.MessageRouter, store interfaces.StateStore, registry Registry) *Server {
	s := &Server{
		messageRouter: messageRouter,
		store:         store,
		registry:      registry,
		router:        http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes follows REST conventions with CORS and JSON middleware applied
// to all routes for web client compatibility
func (s *Server) setupRoutes() {
	s.router.Handle("/api/canvas/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleCanvasState))))
	s.router.Handle("/api/stats", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleStats))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

// ServeHTTP implements http.Handler for integration with the standard server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleCanvasState serves GET /api/canvas/{id}/state
// FUNCTIONAL DISCOVERY: "Never written" and "store down" are different
// responses (404 vs 503) so clients can tell an empty canvas from an outage
func (s *Server) handleCanvasState(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/canvas/")
	canvasID, ok := strings.CutSuffix(path, "/state")
	if !ok || canvasID == "" || strings.Contains(canvasID, "/") {
		s.sendError(w, "Canvas ID required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	state, err := s.messageRouter.GetState(ctx, canvasID)
	if err != nil {
		log.Printf("Canvas state read failed: canvas=%s err=%v", canvasID, err)
		s.sendError(w, "State store unavailable", http.StatusServiceUnavailable)
		return
	}
	if state == nil {
		s.sendError(w, "Canvas not found", http.StatusNotFound)
		return
	}

	s.sendJSON(w, state, http.StatusOK)
}

// handleStats serves GET /api/stats with registry counters
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sendJSON(w, s.registry.Stats(), http.StatusOK)
}

// healthCheck reports service and store health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	if err := s.store.HealthCheck(ctx); err != nil {
		log.Printf("Health check failed: %v", err)
		status["status"] = "unhealthy"
		status["error"] = "state store unreachable"
		s.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, status, http.StatusOK)
}

// corsMiddleware enables cross-origin requests from browser clients
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

// jsonMiddleware sets the response content type
func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// sendJSON writes a JSON response with the given status
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}, status int) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// sendError writes a JSON error envelope
func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, map[string]string{"error": message}, status)
}
