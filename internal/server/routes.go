package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Connections
	mux.HandleFunc("/api/connections", s.app.ConnectionHandler.ListHandler)            // GET - list tenant connections
	mux.HandleFunc("/api/connections/connect", s.app.ConnectionHandler.ConnectHandler) // POST - credentialed login
	mux.HandleFunc("/api/connections/cookies", s.app.ConnectionHandler.ImportCookiesHandler)
	mux.HandleFunc("/api/connections/", s.handleConnectionRoutes) // /{platform}, /{platform}/verify

	// API routes - Publish
	mux.HandleFunc("/api/publish", s.app.PublishHandler.PublishPostHandler)

	// API routes - Interactive sessions (challenge recovery)
	mux.HandleFunc("/api/sessions/interactive", s.app.BrokerHandler.StartSessionHandler)
	mux.HandleFunc("/api/sessions/interactive/", s.app.BrokerHandler.SessionRoutesHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/platforms", s.app.StatusHandler.PlatformsHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleConnectionRoutes dispatches /api/connections/{platform} and
// /api/connections/{platform}/verify
func (s *Server) handleConnectionRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/connections/")
	if path == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if platform, ok := strings.CutSuffix(path, "/verify"); ok {
		s.app.ConnectionHandler.VerifyHandler(w, r, platform)
		return
	}

	RouteByMethod(w, r, MethodRouter{
		http.MethodDelete: func(w http.ResponseWriter, r *http.Request) {
			s.app.ConnectionHandler.DisconnectHandler(w, r, path)
		},
	})
}
