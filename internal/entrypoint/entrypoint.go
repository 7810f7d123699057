package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/covers"
	"github.com/mrlokans/library/internal/database"
	auditRepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/reports"
	"github.com/mrlokans/library/internal/database/settings"
	"github.com/mrlokans/library/internal/database/users"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/metrics"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT. SIGKILL can't be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests first so no new loans are written during cleanup.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting University Library v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	loanStore := loans.NewStore(db.DB)
	reportRepo := reports.NewRepository(db.DB)
	settingsRepo := settings.NewRepository(db.DB)

	// Auth
	authService := auth.NewService(userRepo, cfg.Auth)

	if cfg.Database.Seed {
		result, err := db.Seed(authService.HashPassword)
		if err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		if result.UsersCreated > 0 {
			log.Printf("Seeded %d sample users", result.UsersCreated)
		}
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager)

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret = resolveCSRFSecret(cfg.Auth.SessionSecret)
	}

	// Audit trail
	auditService := audit.NewService(auditRepo.NewRepository(db.DB))
	if cfg.Audit.ArchiveDir != "" {
		auditService.SetArchiver(audit.NewArchiver(cfg.Audit.ArchiveDir))
		log.Printf("Expired audit events will be archived to %s", cfg.Audit.ArchiveDir)
	}

	// Metrics
	var collector *metrics.Collector
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewCollector(reg)
		metricsHandler = metrics.Handler(reg)
	}

	// Domain services
	policy := circulation.Policy{
		MaxActiveLoans: cfg.Loans.MaxActive,
		LoanPeriod:     cfg.Loans.Period,
	}
	circulationService := circulation.NewService(loanStore, policy)
	circulationService.SetAuditor(auditService)
	catalogService := catalog.NewService(bookRepo)
	catalogService.SetAuditor(auditService)

	authController := auth.NewAuthController(authService, sessionManager, cfg.Auth)
	authController.SetAuditor(auditService)

	// Task queue and scheduler
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var sched *scheduler.Scheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromSettings(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		var rec tasks.RunRecorder
		if collector != nil {
			rec = collector
		}

		scanner := tasks.NewOverdueScanner(loanStore, auditService, settingsRepo)
		if collector != nil {
			scanner.SetGauge(collector)
		}
		enricher := metadata.NewCoverEnricher(metadata.NewOpenLibraryClient(), bookRepo)

		taskClient.Register(
			tasks.NewScanOverdueLoansQueue(scanner, rec),
			tasks.NewCleanupAuditEventsQueue(auditService, rec),
			tasks.NewLookupBookCoverQueue(enricher, rec),
			tasks.NewLookupMissingCoversQueue(bookRepo, taskClient, settingsRepo, rec),
		)
		if cfg.Catalog.CoverLookup {
			catalogService.SetCoverQueue(taskClient)
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.Scheduler.Enabled {
			sched = scheduler.NewFromConfig(cfg, taskClient)
			sched.SetState(settingsRepo)
			sched.SetAuditor(auditService)
			if err := sched.Start(taskCtx); err != nil {
				log.Fatalf("Failed to start scheduler: %v", err)
			}
		}
	} else if cfg.Scheduler.Enabled {
		log.Printf("WARNING: scheduler needs the task queue; set TASKS_ENABLED=true to run overdue scans")
	}

	if collector != nil {
		circulationService.SetRecorder(collector)
	}

	routerCfg := http_controllers.RouterConfig{
		Loans:          circulationService,
		LoanReports:    reportRepo,
		Admin:          reportRepo,
		Catalog:        catalogService,
		Audit:          auditService,
		Database:       db,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		MetricsHandler: metricsHandler,
		Version:        version,
	}
	if collector != nil {
		routerCfg.Gauges = collector
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}
	if cfg.Catalog.CoverCacheDir != "" {
		coverCache, err := covers.NewCache(cfg.Catalog.CoverCacheDir)
		if err != nil {
			log.Fatalf("Failed to initialize cover cache: %v", err)
		}
		routerCfg.Covers = coverCache
		log.Printf("Serving cached covers from %s", coverCache.Dir())
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		authController.Stop()
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
}

// resolveCSRFSecret decodes a hex session secret, falls back to its raw bytes,
// and generates a random one when none is configured.
func resolveCSRFSecret(configured string) []byte {
	if configured != "" {
		secret, err := hex.DecodeString(configured)
		if err != nil {
			return []byte(configured)
		}
		return secret
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}
	secret, _ := hex.DecodeString(generated)
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return secret
}
