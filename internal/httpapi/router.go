// Package httpapi exposes keyed scan input, the operator status, the latest
// camera frame and the admin registry and report routes over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scanattend/internal/attendance"
	"scanattend/internal/auth"
	"scanattend/internal/camera"
	"scanattend/internal/httpmiddleware"
	"scanattend/internal/scan"
	"scanattend/internal/status"
	"scanattend/internal/store"
)

// Submitter accepts keyed scans; *scan.Coordinator implements it.
type Submitter interface {
	Submit(ctx context.Context, ev scan.RawScanEvent) (scan.Outcome, bool)
}

// Deps are the services behind the routes. Frames and Redis may be nil.
type Deps struct {
	Scans    Submitter
	Registry *attendance.Registry
	Ledger   *attendance.Ledger
	Board    *status.Board
	Frames   *camera.LatestFrame
	DB       *store.DB
	Redis    *store.Redis
	Limiter  *httpmiddleware.TokenBucket
	Gatherer prometheus.Gatherer

	OutcomeKey    string // redis list of the outcome stream, reported by /healthz
	JWTSigningKey string
	JWTIssuer     string
	Logger        *slog.Logger
}

type handler struct {
	Deps
	log *slog.Logger
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	h := &handler{Deps: d, log: d.Logger.With("component", "http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(h.requestLogger("/healthz", "/metrics", "/v1/frame.jpg", "/v1/status", "/v1/status/stream"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.healthz)

	v1 := r.Group("/v1")
	scanHandlers := []gin.HandlerFunc{h.submitScan}
	if d.Limiter != nil {
		scanHandlers = append([]gin.HandlerFunc{d.Limiter.GinMiddleware()}, scanHandlers...)
	}
	v1.POST("/scans", scanHandlers...)
	v1.GET("/status", h.status)
	v1.GET("/status/stream", h.statusStream)
	v1.GET("/frame.jpg", h.frame)

	admin := v1.Group("", auth.RequireRole(d.JWTSigningKey, d.JWTIssuer, auth.RoleAdmin))
	admin.POST("/subjects", h.enroll)
	admin.GET("/subjects", h.listSubjects)
	admin.GET("/subjects/:code", h.getSubject)
	admin.GET("/subjects/:code/total", h.totalScans)
	admin.GET("/records", h.listRecords)
	admin.GET("/records/export.csv", h.exportRecords)

	return r
}

func (h *handler) requestLogger(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if _, ok := skipped[c.FullPath()]; ok {
			return
		}
		h.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func (h *handler) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.DB.Healthy(ctx)
	body := gin.H{"db": dbHealthy}
	healthy := dbHealthy
	if h.Redis != nil {
		redisHealthy := h.Redis.Healthy(ctx)
		body["redis"] = redisHealthy
		healthy = healthy && redisHealthy
		if redisHealthy && h.OutcomeKey != "" {
			if n, err := h.Redis.Backlog(ctx, h.OutcomeKey); err == nil {
				body["outcome_backlog"] = n
			}
		}
	}
	code := http.StatusOK
	body["status"] = "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(code, body)
}
