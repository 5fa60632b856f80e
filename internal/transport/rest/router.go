package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"radreview/internal/service"
	"radreview/internal/transport/rest/handler"
	"radreview/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	EvalService *service.EvalService
	WSHub       *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(c.EvalService)
	caseHandler := handler.NewCaseHandler(c.EvalService)
	wsHandler := ws.NewHandler(c.WSHub)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/session", sessionHandler.Start).Methods("GET", "OPTIONS")
	v1.HandleFunc("/metrics", sessionHandler.Metrics).Methods("GET", "OPTIONS")

	v1.HandleFunc("/doctors/{doctorId}/cases", caseHandler.DoctorCases).Methods("GET", "OPTIONS")
	v1.HandleFunc("/cases/{caseId}", caseHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/cases/{caseId}/state", caseHandler.State).Methods("GET", "OPTIONS")
	v1.HandleFunc("/cases/{caseId}/scores", caseHandler.Score).Methods("PUT", "OPTIONS")
	v1.HandleFunc("/cases/{caseId}/submit", caseHandler.Submit).Methods("POST", "OPTIONS")

	// WebSocket status events
	v1.HandleFunc("/ws/evaluators/{doctorId}", wsHandler.EvaluatorWS).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
