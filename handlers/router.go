package handlers

import (
	"alumni-server/middleware"
	"alumni-server/services"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// APIPrefix is where the user routes are mounted; the client page calls it.
const APIPrefix = "/api/users"

type RouterConfig struct {
	UserService       *services.UserService
	ConnectionService *services.ConnectionService
	Tokens            middleware.TokenVerifier
	Logger            *slog.Logger
	AllowedOrigins    []string
	MaxUploadBytes    int64

	// Optional.
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	PublicDir      string
}

func NewRouter(cfg RouterConfig) *mux.Router {
	authHandler := NewAuthHandler(cfg.UserService, cfg.MaxUploadBytes)
	userHandler := NewUserHandler(cfg.UserService, cfg.ConnectionService)
	healthHandler := NewHealthHandler(cfg.UserService)

	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware(cfg.Logger), middleware.LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/healthz", healthHandler.Health).Methods("GET")
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods("GET")
	}

	// Auth routes
	api := r.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/register", authHandler.RegisterUser).Methods("POST", "OPTIONS")
	api.HandleFunc("/login", authHandler.LoginUser).Methods("POST", "OPTIONS")

	// Directory and connection routes
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.JWTMiddleware(cfg.Tokens, cfg.Logger))
	protected.HandleFunc("", userHandler.ListUsers).Methods("GET", "OPTIONS")
	protected.HandleFunc("/", userHandler.ListUsers).Methods("GET", "OPTIONS")
	protected.HandleFunc("/search", userHandler.SearchUsers).Methods("GET", "OPTIONS")
	protected.HandleFunc("/connect/{id}", userHandler.SendConnectionRequest).Methods("POST", "OPTIONS")
	protected.HandleFunc("/accept/{id}", userHandler.AcceptConnectionRequest).Methods("POST", "OPTIONS")
	protected.HandleFunc("/{id}/connections", userHandler.GetConnections).Methods("GET", "OPTIONS")
	protected.HandleFunc("/{id}/pending-requests", userHandler.GetPendingRequests).Methods("GET", "OPTIONS")

	// Client page and uploaded photos
	if cfg.PublicDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.PublicDir))).Methods("GET", "HEAD")
	}

	return r
}
