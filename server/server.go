// Package server is the HTTP surface of the gateway. Every client-facing
// route is JWT protected; health and stats stay open for probes.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wa-gateway/auth"
	"wa-gateway/observability"
	"wa-gateway/services"
)

type Server struct {
	log      *slog.Logger
	service  services.IGatewayService
	monitor  *observability.Monitor
	tokens   *auth.TokenManager
	validate *validator.Validate
}

func NewServer(log *slog.Logger, service services.IGatewayService, monitor *observability.Monitor, tokens *auth.TokenManager) *Server {
	return &Server{
		log:      log,
		service:  service,
		monitor:  monitor,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// Routes assembles the handler tree.
func (s *Server) Routes() http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("POST /clients/{location_identifier}/connect", s.handleConnect)
	protected.HandleFunc("GET /clients/{location_identifier}/chats", s.handleChats)
	protected.HandleFunc("GET /sessions", s.handleSessions)

	mux := http.NewServeMux()
	mux.Handle("/", auth.Middleware(s.log, s.tokens, protected))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	return s.withRequestID(mux)
}

// withRequestID tags every request with a correlation id, echoed in the
// response so remote application logs can be matched with gateway logs.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		s.log.Debug("request", "request_id", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
