// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/config"
	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/http/handlers"
	"github.com/cunaobot/go-cunao-backend/internal/http/middleware"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health, stats, and metrics endpoints, and then
// mounts
// the versioned adapter API under the configured base path.
//
// The notifier and curator source are injected so the binary can swap the
// log-only defaults for real platform adapters without touching the router.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per identity/IP)
//  8. CORS and Security headers
//  9. gzip compression
func RegisterRoutes(r *gin.Engine, db *gorm.DB, notifier services.Notifier, curators services.CuratorSource, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per identity/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIdentityOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdentity},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdentity},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 9) Compress responses (catalog pages benefit the most)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Operational snapshot: catalog sizes and the curation backlog. The
	// adapters surface these in their admin commands.
	r.GET("/stats", func(c *gin.Context) {
		out := gin.H{}
		for _, kind := range []string{domain.KindShort, domain.KindLong} {
			count, updatedAt, err := repo.CatalogStats(c.Request.Context(), db, kind)
			if err != nil {
				handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal, err.Error())
				return
			}
			entry := gin.H{"count": count}
			if updatedAt != nil {
				entry["updated_at"] = updatedAt
			}
			out["catalog_"+kind] = entry
		}
		open, err := repo.OpenProposalCount(c.Request.Context(), db)
		if err != nil {
			handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal, err.Error())
			return
		}
		out["open_proposals"] = open
		c.JSON(http.StatusOK, out)
	})

	// Dependency injection: services ← repo/db/adapters
	phraseSvc := services.NewPhraseService(db)
	userSvc := services.NewUserService(db)
	badgeSvc := services.NewBadgeService(db, userSvc)
	propSvc := &services.ProposalService{
		DB:             db,
		Phrases:        phraseSvc,
		Users:          userSvc,
		Badges:         badgeSvc,
		Notifier:       notifier,
		Curators:       curators,
		CuratorGroup:   cfg.Curation.CuratorGroup,
		CuratorChannel: cfg.Curation.CuratorChannel,
		CuratorTTL:     cfg.Curation.CuratorTTL,
		Thresholds: services.Thresholds{
			Catalog:        cfg.Curation.DupCatalog,
			OpenProposal:   cfg.Curation.DupOpenProposal,
			ClosedProposal: cfg.Curation.DupClosedProposal,
		},
	}
	linkSvc := services.NewLinkService(db, userSvc)
	linkSvc.TTL = cfg.LinkTTL
	usageSvc := &services.UsageService{DB: db, Users: userSvc, Badges: badgeSvc, Phrases: phraseSvc}

	h := handlers.New(propSvc, usageSvc, userSvc, badgeSvc, linkSvc, phraseSvc)

	// Adapter API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Curation pipeline
		api.POST("/proposals", h.SubmitProposal)
		api.POST("/proposals/:id/votes", h.VoteProposal)

		// Usage ledger
		api.POST("/usages", h.RecordUsage)

		// Profiles
		api.GET("/users/:id", h.GetUser)
		api.GET("/users/:id/badges", h.GetBadges)
		api.POST("/users/:id/privacy", h.TogglePrivacy)
		api.DELETE("/users/:id", h.DeleteUser)

		// Cross-platform linking
		api.POST("/links", h.RequestLink)
		api.POST("/links/complete", h.CompleteLink)

		// Catalog
		api.GET("/phrases", h.ListPhrases)
		api.GET("/phrases/random", h.RandomPhrase)
		api.GET("/phrases/search", h.SearchPhrases)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
