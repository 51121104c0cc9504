package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/ccLee627/dacs7"
	_ "github.com/ccLee627/dacs7/docs" // Import generated docs
)

// Server represents the HTTP server
type Server struct {
	config     *Config
	middleware *Middleware
	handler    *Handler
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(config *Config) (*Server, error) {
	client, err := dacs7.New(
		dacs7.WithAddress(config.PLC.Target),
		dacs7.WithRack(config.PLC.Rack),
		dacs7.WithSlot(config.PLC.Slot),
		dacs7.WithConnectionType(config.PLCConnectionType()),
		dacs7.WithPDUSize(config.PLC.PDUSize),
		dacs7.WithTimeout(config.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create PLC client: %w", err)
	}

	mw := NewMiddleware(client, config)
	h := NewHandler(mw)

	s := &Server{
		config:     config,
		middleware: mw,
		handler:    h,
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// CORS
	if s.config.Server.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.Server.CORS.AllowedOrigins,
			AllowedMethods:   s.config.Server.CORS.AllowedMethods,
			AllowedHeaders:   s.config.Server.CORS.AllowedHeaders,
			AllowCredentials: s.config.Server.CORS.AllowCredentials,
			MaxAge:           300,
		}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Tag operations
		r.Route("/tags", func(r chi.Router) {
			r.Post("/read", s.handler.HandleBatchRead)
			r.Post("/write", s.handler.HandleBatchWrite)

			r.Route("/{address}", func(r chi.Router) {
				r.Get("/value", s.handler.HandleReadTag)
				r.Post("/value", s.handler.HandleWriteTag)
			})
		})

		// Program block metadata
		r.Get("/blocks/{type}/{number}", s.handler.HandleGetBlockInfo)

		// Alarms
		r.Get("/alarms", s.handler.HandleGetPendingAlarms)

		// System operations
		r.Get("/health", s.handler.HandleHealth)
		r.Get("/info", s.handler.HandleInfo)
		r.Get("/version", s.handler.HandleGetVersion)
		r.Get("/state", s.handler.HandleGetState)
		r.Get("/clock", s.handler.HandleGetClock)
	})

	// WebSocket endpoint
	r.Get("/ws/alarms", s.handler.HandleWebSocket)

	// Swagger UI
	r.Get("/swagger-ui/*", httpSwagger.WrapHandler)

	// Root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"dacs7 HTTP/WebSocket API","version":"1.0","docs":"/swagger-ui/index.html","websocket":"ws://localhost:8080/ws/alarms"}`)
	})

	s.router = r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting server on %s", s.config.Address())
	log.Printf("PLC target: %s", s.config.PLC.Target)
	log.Printf("API endpoints available at http://%s/api/v1", s.config.Address())

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	if err := s.middleware.client.Close(); err != nil {
		log.Printf("error closing PLC client: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// Router returns the chi router (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
