package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"isp-billing-platform/internal/auth"
	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/cache"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/distribution"
	"isp-billing-platform/internal/equipment"
	"isp-billing-platform/internal/events"
	"isp-billing-platform/internal/ownership"
	"isp-billing-platform/internal/reporting"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per client
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	eventBus    *events.EventBus
	cacheSvc    *cache.CacheService
	config      ServerConfig
	jwtManager  *auth.JWTManager
	authEnabled bool
	ledger      *ownership.Ledger
	calculator  *billing.ProfitCalculator
	engine      *distribution.Engine
	analyzer    *equipment.Analyzer
	reports     *reporting.Service
	rateLimiter *RateLimiter
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ProductionMode bool
	AllowedOrigins []string
	RateLimit      int // requests per minute per client
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	eventBus *events.EventBus,
	cacheSvc *cache.CacheService, // Can be nil if redis is disabled
	jwtManager *auth.JWTManager, // Can be nil if auth is disabled
	ledger *ownership.Ledger,
	calculator *billing.ProfitCalculator,
	engine *distribution.Engine,
	analyzer *equipment.Analyzer,
	reports *reporting.Service,
) *Server {
	// Set Gin mode
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) == 0 || (len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}

	server := &Server{
		router:      router,
		repo:        repo,
		eventBus:    eventBus,
		cacheSvc:    cacheSvc,
		config:      config,
		jwtManager:  jwtManager,
		authEnabled: jwtManager != nil,
		ledger:      ledger,
		calculator:  calculator,
		engine:      engine,
		analyzer:    analyzer,
		reports:     reports,
		rateLimiter: NewRateLimiter(rateLimit, time.Minute),
	}

	server.setupRoutes()

	return server
}

// rateLimitMiddleware limits requests per client IP
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please slow down.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		api.Use(auth.Middleware(s.jwtManager))
	}

	// Partnerships
	companies := api.Group("/companies/:company_id")
	if s.authEnabled {
		companies.Use(auth.RequireCompanyAccess("company_id"))
	}
	companies.POST("/partnerships", s.handleCreatePartnership)
	companies.GET("/partnerships", s.handleListPartnerships)
	companies.GET("/ownership", s.handleValidateOwnership)

	// Profit and distributions
	companies.POST("/profits", s.handleRecordProfit)
	companies.GET("/distributions", s.handleListDistributions)
	companies.GET("/distributions/export", s.handleExportDistributions)
	companies.GET("/equipment", s.handleListEquipment)
	companies.POST("/equipment", s.handleCreateEquipment)
	companies.GET("/equipment-costs", s.handleEquipmentCostReport)

	api.GET("/partnerships/:id", s.handleGetPartnership)
	api.PUT("/partnerships/:id", s.handleUpdatePartnership)
	api.DELETE("/partnerships/:id", s.handleDeactivatePartnership)

	api.GET("/distributions/:id", s.handleGetDistribution)
	api.POST("/distributions/:id/distribute", s.handleDistributeProfit)
	api.GET("/distributions/:id/shares/export", s.handleExportShares)

	api.GET("/shares", s.handleListShares)
	api.POST("/shares/:id/pay", s.handleMarkSharePaid)

	// Equipment analytics
	api.GET("/equipment/:id/maintenance", s.handleListMaintenance)
	api.POST("/equipment/:id/maintenance", s.handleCreateMaintenance)
	api.GET("/equipment/:id/depreciation", s.handleDepreciationSchedule)
	api.GET("/equipment/:id/roi", s.handleEquipmentROI)

	// Partner reports
	api.GET("/partners/:partner_id/earnings", s.handlePartnerEarnings)

	// Admin
	admin := api.Group("/admin")
	if s.authEnabled {
		admin.Use(auth.RequireAdmin())
	}
	admin.GET("/events", s.handleRecentEvents)
	admin.GET("/cache/stats", s.handleCacheStats)
}

// handleHealth reports service and dependency health
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.HealthCheck(ctx); err != nil {
		health["status"] = "degraded"
		health["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		health["postgres"] = "ok"
	}

	if s.cacheSvc != nil {
		if s.cacheSvc.IsHealthy() {
			health["redis"] = "ok"
		} else {
			// Cache outages degrade reports but don't fail the service
			health["redis"] = "unavailable"
		}
	}

	c.JSON(status, health)
}

// handleRecentEvents returns the recent audit trail
func (s *Server) handleRecentEvents(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	systemEvents, err := s.repo.GetRecentSystemEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, billing.NewPersistenceError("system events lookup", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": systemEvents})
}

// handleCacheStats exposes cache circuit breaker state
func (s *Server) handleCacheStats(c *gin.Context) {
	if s.cacheSvc == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "stats": s.cacheSvc.GetStats()})
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("[API] Server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying router for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// respondError maps business error codes to HTTP statuses
func respondError(c *gin.Context, err error) {
	var businessErr *billing.BusinessError
	if !errors.As(err, &businessErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(billing.CodePersistence),
			"message": err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch businessErr.Code {
	case billing.CodeValidation, billing.CodeInvalidPeriod:
		status = http.StatusBadRequest
	case billing.CodeNotFound:
		status = http.StatusNotFound
	case billing.CodeDuplicatePeriod, billing.CodeInvalidState:
		status = http.StatusConflict
	case billing.CodeOwnershipExceeded, billing.CodeInsufficientProfit,
		billing.CodeNoActivePartners, billing.CodeOwnershipInvalid:
		status = http.StatusUnprocessableEntity
	case billing.CodeCalculationTimeout:
		status = http.StatusGatewayTimeout
	}

	body := gin.H{
		"error":   string(businessErr.Code),
		"message": businessErr.Message,
	}
	if len(businessErr.Details) > 0 {
		body["details"] = businessErr.Details
	}
	c.JSON(status, body)
}
