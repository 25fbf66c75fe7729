package http_api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carelink/carewallet/internal/metrics"
	"github.com/carelink/carewallet/internal/overview"
	"github.com/carelink/carewallet/internal/subscription"
	"github.com/carelink/carewallet/internal/wallet"
	"github.com/carelink/carewallet/pkg/logger"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second
	// DefaultRequestTimeout bounds every request's store operations
	DefaultRequestTimeout = 15 * time.Second
)

// Options carries the server's transport settings.
type Options struct {
	Port           int
	JWTSecret      string
	InternalAPIKey string
	RequestTimeout time.Duration
}

// HTTPServer is the HTTP server struct that will serve the API
type HTTPServer struct {
	// logger is the logger instance
	logger *logger.Logger

	// router is the HTTP router
	router *gin.Engine
	// port is the port on which the server will listen
	port int

	// server is the underlying HTTP server
	server *http.Server

	wallet        *wallet.Service
	subscriptions *subscription.Service
	overview      *overview.Service
	metrics       *metrics.Metrics

	jwtSecret      []byte
	internalAPIKey string
	requestTimeout time.Duration
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-Id")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// NewHTTPServer creates a new HTTP server instance
func NewHTTPServer(
	walletService *wallet.Service,
	subscriptionService *subscription.Service,
	overviewService *overview.Service,
	m *metrics.Metrics,
	opts Options,
	logger *logger.Logger,
) *HTTPServer {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	log := logger.Named("http")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(log))
	router.Use(corsMiddleware())

	server := &HTTPServer{
		logger:         log,
		router:         router,
		port:           opts.Port,
		wallet:         walletService,
		subscriptions:  subscriptionService,
		overview:       overviewService,
		metrics:        m,
		jwtSecret:      []byte(opts.JWTSecret),
		internalAPIKey: opts.InternalAPIKey,
		requestTimeout: opts.RequestTimeout,
	}

	// Define routes
	server.routes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf("0.0.0.0:%v", s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infow("Starting HTTP server", "address", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start the HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
