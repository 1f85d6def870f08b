package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridsentinel/fault-diagnosis/api/handlers"
	"github.com/gridsentinel/fault-diagnosis/api/middleware"
	"github.com/gridsentinel/fault-diagnosis/api/websocket"
	"github.com/gridsentinel/fault-diagnosis/internal/auth"
	"github.com/gridsentinel/fault-diagnosis/internal/engine"
	"github.com/gridsentinel/fault-diagnosis/internal/events"
	"github.com/gridsentinel/fault-diagnosis/internal/metrics"
	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/config"
	"github.com/gridsentinel/fault-diagnosis/pkg/database"
	"github.com/gridsentinel/fault-diagnosis/pkg/database/queries"
)

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	db          *database.DB
	model       *scorer.Model
	engine      *engine.Engine
	authService *auth.Service
	eventBus    *events.EventBus
	publisher   *events.Publisher
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
}

func NewServer(cfg *config.Config, db *database.DB, model *scorer.Model) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	jwtDuration := cfg.API.JWTDuration
	if jwtDuration <= 0 {
		jwtDuration = 24 * time.Hour
	}
	authService := auth.NewService(cfg.API.JWTSecret, jwtDuration)

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		model:       model,
		engine:      engine.New(model),
		authService: authService,
		eventBus:    eventBus,
		publisher:   events.NewPublisher(eventBus),
		wsHub:       wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	s.wsBridge = websocket.NewEventBridge(wsHub, eventBus.SubscribeAll())
	s.wsBridge.Start()

	eventLogger := events.NewEventLogger(eventBus)
	eventLogger.Start()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS(s.corsConfig()))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())

	if s.config.API.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
		s.router.Use(middleware.RateLimit(rateLimiter))

		// Diagnose writes to the ledger and publishes events, so it gets a
		// tighter budget than the read endpoints.
		diagnoseLimit := s.config.API.RateLimit / 2
		if diagnoseLimit < 1 {
			diagnoseLimit = 1
		}
		endpointLimiter := middleware.NewEndpointRateLimiter()
		endpointLimiter.AddEndpoint("/api/diagnose", diagnoseLimit, time.Minute)
		s.router.Use(endpointLimiter.Middleware())
	}
}

func (s *Server) corsConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	cors := s.config.API.CORS
	if len(cors.AllowedOrigins) > 0 {
		cfg.AllowOrigins = cors.AllowedOrigins
	}
	if len(cors.AllowedMethods) > 0 {
		cfg.AllowMethods = cors.AllowedMethods
	}
	if len(cors.AllowedHeaders) > 0 {
		cfg.AllowHeaders = cors.AllowedHeaders
	}
	if len(cors.ExposedHeaders) > 0 {
		cfg.ExposeHeaders = cors.ExposedHeaders
	}
	cfg.AllowCredentials = cors.AllowCredentials
	return cfg
}

func (s *Server) setupRoutes() {
	// Repositories
	userRepo := queries.NewUserRepository(s.db.DB)
	diagRepo := queries.NewDiagnosisRepository(s.db.DB)

	// Handlers
	healthHandler := handlers.NewHealthHandler(s.db, s.model)
	authHandler := handlers.NewAuthHandler(userRepo, s.authService)
	diagnoseHandler := handlers.NewDiagnoseHandler(s.engine, diagRepo, s.publisher)
	historyHandler := handlers.NewHistoryHandler(diagRepo, &s.config.API)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)
	s.router.GET("/metrics", gin.WrapH(metrics.Get().Handler()))

	// Auth routes
	authGroup := s.router.Group("/auth")
	authGroup.Use(middleware.AuthRateLimiter())
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Diagnosis API. /api/user always requires a token; the rest of the
	// group requires one only when auth is enabled.
	apiGroup := s.router.Group("/api")
	apiGroup.GET("/user", middleware.JWTAuth(s.authService), authHandler.Me)
	if s.config.API.AuthEnabled {
		apiGroup.Use(middleware.JWTAuth(s.authService))
	}
	{
		apiGroup.POST("/diagnose", diagnoseHandler.Diagnose)
		apiGroup.GET("/history", historyHandler.History)
		apiGroup.GET("/stats", historyHandler.Stats)
		apiGroup.GET("/stats/runtime", historyHandler.RuntimeStats)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	idleTimeout := s.config.API.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the event bridge before closing the bus
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.eventBus.Close()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
