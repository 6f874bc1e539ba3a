package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hackathon/internal/attendance"
	"hackathon/internal/auth"
	"hackathon/internal/candidate"
	"hackathon/internal/cloudinary"
	"hackathon/internal/config"
	"hackathon/internal/hackathon"
	"hackathon/internal/handler"
	"hackathon/internal/httpmiddleware"
	"hackathon/internal/media"
	"hackathon/internal/metrics"
	"hackathon/internal/queue"
	"hackathon/internal/report"
	"hackathon/internal/squad"
	"hackathon/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	var assets media.Storage
	if cfg.CloudinaryEnabled() {
		assets = &media.Cloud{Client: cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)}
		log.Println("cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		local, err := media.NewLocal(cfg.UploadDir)
		if err != nil {
			return err
		}
		assets = local
		log.Printf("cloudinary not configured, storing uploads in %s", cfg.UploadDir)
	}
	loader := media.NewLoader(cfg.UploadDir)
	loc := cfg.Location()

	candidates := candidate.NewService(candidate.NewRepository(db.Client), q, assets)
	ledger := attendance.NewService(attendance.NewRepository(db.Client), candidates, loc)
	squads := squad.NewService(squad.NewRepository(db.Client), loc)
	hackathons := hackathon.NewService(hackathon.NewRepository(db.Client))
	reports := report.NewService(report.NewRepository(db.Client), squads, loader, loc)
	admins := auth.NewService(auth.NewRepository(db.Client), auth.Options{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		TTL:        cfg.AccessTTL,
	})

	// The in-memory queue has no separate worker process to drain it.
	if cfg.QueueBackend == "memory" {
		go func() {
			_ = queue.Serve(ctx, q, map[string]queue.HandlerFunc{
				queue.TypeRenderQR: renderQR(candidates),
			})
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitStore == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(m.Middleware())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.Static(media.URLPrefix, cfg.UploadDir)

	handler.New(handler.Deps{
		Admins:         admins,
		Candidates:     candidates,
		Attendance:     ledger,
		Squads:         squads,
		Hackathons:     hackathons,
		Reports:        reports,
		Assets:         loader,
		Metrics:        m,
		SigningKey:     cfg.JWTSigningKey,
		Issuer:         cfg.JWTIssuer,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		Location:       loc,
	}).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

func renderQR(candidates *candidate.Service) queue.HandlerFunc {
	return func(ctx context.Context, msg queue.Message) error {
		id, err := msg.CandidateID()
		if err != nil {
			return err
		}
		url, err := candidates.RenderAndStoreQR(ctx, id)
		if err != nil {
			return err
		}
		log.Printf("qr image for candidate %d stored at %s", id, url)
		return nil
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
