// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/uxmeas/kollects-io/internal/logging"
	"github.com/uxmeas/kollects-io/internal/types"
)

// Service interfaces for dependency injection and testing

// PortfolioServiceInterface defines the interface for portfolio operations
type PortfolioServiceInterface interface {
	BuildSnapshot(ctx context.Context, address string, overrides map[string]types.PurchasePatch) (*types.PortfolioSnapshot, error)
}

// PurchaseStoreInterface defines the interface for purchase record operations
type PurchaseStoreInterface interface {
	Get(ctx context.Context, wallet, itemID string) (*types.PurchaseRecord, error)
	GetAll(ctx context.Context, wallet string) (map[string]*types.PurchaseRecord, error)
	Put(ctx context.Context, wallet, itemID string, patch types.PurchasePatch) (*types.PurchaseRecord, error)
	Delete(ctx context.Context, wallet, itemID string) error
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	portfolioService PortfolioServiceInterface
	purchaseStore    PurchaseStoreInterface
	config           *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	portfolioService PortfolioServiceInterface,
	purchaseStore PurchaseStoreInterface,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		portfolioService: portfolioService,
		purchaseStore:    purchaseStore,
		config:           config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Set up middleware (order matters!)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	api.HandleFunc("/portfolio/{address}", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/{address}", s.handlePostPortfolio).Methods("POST")

	// Purchase record endpoints
	api.HandleFunc("/wallets/{address}/purchases", s.handleListPurchases).Methods("GET")
	api.HandleFunc("/wallets/{address}/purchases/{itemId}", s.handleGetPurchase).Methods("GET")
	api.HandleFunc("/wallets/{address}/purchases/{itemId}", s.handlePutPurchase).Methods("PUT")
	api.HandleFunc("/wallets/{address}/purchases/{itemId}", s.handleDeletePurchase).Methods("DELETE")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "kollects",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
