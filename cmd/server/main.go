package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vitalis-labs/vitalis-pulse/internal/cache"
	"github.com/vitalis-labs/vitalis-pulse/internal/config"
	"github.com/vitalis-labs/vitalis-pulse/internal/database"
	apperrors "github.com/vitalis-labs/vitalis-pulse/internal/errors"
	"github.com/vitalis-labs/vitalis-pulse/internal/lab"
	"github.com/vitalis-labs/vitalis-pulse/internal/monitoring"
	"github.com/vitalis-labs/vitalis-pulse/internal/privacy"
	"github.com/vitalis-labs/vitalis-pulse/internal/ratelimit"
	"github.com/vitalis-labs/vitalis-pulse/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := monitoring.NewLogger(parseLogLevel(cfg.LogLevel))
	slog.SetDefault(appLogger.Logger)

	// Database and repository
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	sessionService := database.NewSessionService(repo, cfg.JWTSecret)
	privacyService := privacy.NewService(repo, cfg.RetentionDays)

	// Monitoring
	appMetrics := monitoring.NewMetrics()

	// Rate limiting: Redis with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:   cfg.IPLimitPerMin,
		BurstMultiplier: 2,
	}, appMetrics)

	// Predictive lab: model cache plus services around it
	var trainer lab.Trainer
	switch cfg.ScorerBackend {
	case "heuristic":
		trainer = lab.NewHeuristicTrainer()
	default:
		trainer = lab.NewLinearTrainer()
	}

	cacheConfig := lab.DefaultCacheConfig()
	cacheConfig.TTL = time.Duration(cfg.ModelTTLMinutes) * time.Minute
	cacheConfig.MinTrainingRows = cfg.MinTrainingRows

	modelCache := lab.NewModelCache(repo, trainer, cacheConfig, appMetrics)
	labService := lab.NewService(modelCache, repo, repo)

	// Retention cleanup runs daily
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go privacyService.Run(cleanupCtx, 24*time.Hour)

	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(limiter.IPRateLimitMiddleware())

	// Short-TTL response cache for the expensive read-only aggregates.
	responseCache := cache.NewCache(time.Duration(cfg.ResponseCacheTTLSeconds) * time.Second)
	r.Use(responseCache.Middleware(appMetrics, "/api/lab/organization", "/api/dashboard/stats"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"model":     modelCache.Stats(),
			"cache":     responseCache.Stats(),
			"database":  db.GetPoolStats(),
			"ratelimit": limiter.GetStats(),
			"metrics":   appMetrics.GetStats(),
		})
	})

	r.GET("/metrics", gin.WrapH(appMetrics.Handler()))

	r.POST("/api/session", func(c *gin.Context) {
		var req struct {
			Email       string `json:"email" binding:"required,email"`
			DisplayName string `json:"display_name"`
			TeamID      string `json:"team_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid session request", err.Error()))
			return
		}

		result, err := sessionService.StartSession(c.Request.Context(), req.Email, req.DisplayName, req.TeamID)
		if err != nil {
			respondError(c, apperrors.ToAppError(err))
			return
		}

		c.JSON(http.StatusOK, result)
	})

	r.POST("/api/checkins", func(c *gin.Context) {
		userID, ok := authenticatedUser(c, sessionService, appLogger)
		if !ok {
			return
		}

		var req struct {
			SleepHours   float64 `json:"sleep_hours" binding:"min=0,max=24"`
			SleepQuality int     `json:"sleep_quality" binding:"min=0,max=10"`
			FatigueLevel int     `json:"fatigue_level" binding:"min=0,max=100"`
			StressLevel  int     `json:"stress_level" binding:"min=0,max=100"`
			FocusLevel   int     `json:"focus_level" binding:"min=0,max=100"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid check-in", err.Error()))
			return
		}

		teamID := ""
		if user, err := repo.GetUser(c.Request.Context(), userID); err == nil && user != nil {
			teamID = user.TeamID
		}

		checkin := database.NewCheckIn(userID, teamID, req.SleepHours,
			req.SleepQuality, req.FatigueLevel, req.StressLevel, req.FocusLevel)
		if err := repo.SaveCheckIn(c.Request.Context(), checkin); err != nil {
			respondError(c, apperrors.ToAppError(err))
			return
		}

		c.JSON(http.StatusCreated, checkin)
	})

	// The scoring endpoints are costlier than plain reads and carry their
	// own per-IP limit on top of the global one.
	scoringLimit := limiter.EndpointRateLimitMiddleware("lab", 30)

	r.POST("/api/lab/predict", scoringLimit, func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid prediction request", err.Error()))
			return
		}

		start := time.Now()
		result, err := labService.PredictForUser(ctx, req.UserID)
		if err != nil {
			respondError(c, labError(err))
			return
		}

		// Logs carry the anonymized ID, never the raw one.
		appLogger.ProjectionLogger(privacyService.AnonymizeID(req.UserID), result.Projection.Stress,
			result.Projection.Focus, result.Confidence, time.Since(start))
		publishModelGauges(appMetrics, modelCache)

		c.JSON(http.StatusOK, result)
	})

	r.GET("/api/lab/organization", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		snapshot, err := labService.OrganizationSnapshot(ctx)
		if err != nil {
			respondError(c, labError(err))
			return
		}

		publishModelGauges(appMetrics, modelCache)
		c.JSON(http.StatusOK, snapshot)
	})

	r.POST("/api/lab/burnout", scoringLimit, func(c *gin.Context) {
		var features lab.FeatureVector
		if err := c.ShouldBindJSON(&features); err != nil {
			respondError(c, apperrors.NewValidationError("invalid feature vector", err.Error()))
			return
		}

		c.JSON(http.StatusOK, labService.AssessBurnout(features))
	})

	r.GET("/api/dashboard/stats", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		stats, err := labService.DashboardStats(ctx)
		if err != nil {
			respondError(c, labError(err))
			return
		}

		c.JSON(http.StatusOK, stats)
	})

	r.GET("/privacy/policy", func(c *gin.Context) {
		c.JSON(http.StatusOK, privacyService.GetDataRetentionInfo())
	})

	if os.Getenv("ENABLE_PROFILING") == "true" {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "addr", cfg.Addr, "scorer_backend", cfg.ScorerBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// authenticatedUser resolves the session token from the Authorization
// header. Writes the error response itself when the token is missing or
// invalid.
func authenticatedUser(c *gin.Context, sessions *database.SessionService, logger *monitoring.Logger) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return "", false
	}

	userID, err := sessions.ValidateSessionToken(token)
	if err != nil {
		logger.SecurityLogger("invalid_session_token", c.ClientIP(), c.Request.UserAgent(),
			map[string]interface{}{"path": c.Request.URL.Path})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
		return "", false
	}

	return userID, true
}

// labError maps lab failures onto the HTTP error taxonomy.
func labError(err error) *apperrors.AppError {
	if errors.Is(err, lab.ErrSourceUnavailable) {
		return apperrors.NewSourceUnavailableError("check-in source unavailable and no model cached", err)
	}
	return apperrors.ToAppError(err)
}

func respondError(c *gin.Context, appErr *apperrors.AppError) {
	apperrors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

func publishModelGauges(metrics *monitoring.Metrics, modelCache *lab.ModelCache) {
	state := modelCache.State()
	if state == nil {
		return
	}
	age := time.Duration(0)
	if t := state.TrainedAtPtr(); t != nil {
		age = time.Since(*t)
	}
	metrics.SetModelGauges(state.DatasetSize(), age)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
