package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/featureflags"
	"github.com/yourorg/tillpoint/internal/handler"
	"github.com/yourorg/tillpoint/internal/infrastructure/logger"
	"github.com/yourorg/tillpoint/internal/infrastructure/redis"
	"github.com/yourorg/tillpoint/internal/observability/metrics"
	"github.com/yourorg/tillpoint/internal/observability/tracing"
	"github.com/yourorg/tillpoint/internal/payment"
	"github.com/yourorg/tillpoint/internal/repository"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/security/auth"
	"github.com/yourorg/tillpoint/internal/security/middleware"
	"github.com/yourorg/tillpoint/internal/security/ratelimit"
	"github.com/yourorg/tillpoint/internal/service"
	"github.com/yourorg/tillpoint/internal/storage/jsonstore"
	"github.com/yourorg/tillpoint/internal/worker"
	"github.com/yourorg/tillpoint/pkg/config"
	"github.com/yourorg/tillpoint/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting tillpoint server",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.Storage),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an OTLP endpoint is configured)
	tracingShutdown, err := tracing.Init(ctx, log, "tillpoint", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer tracingShutdown(context.Background())

	// 4. Initialize storage backend
	var (
		productRepo domain.ProductRepository
		saleRepo    domain.SaleRepository
		staffRepo   domain.StaffRepository
		store       *jsonstore.Store
		pool        *database.ConnectionPool
	)
	switch cfg.Storage {
	case "postgres":
		pool, err = database.NewConnectionPool(ctx, &database.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			Database: cfg.PostgresDatabase,
			SSLMode:  cfg.PostgresSSLMode,
		}, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		productRepo = repository.NewPostgresProductRepository(pool.GetDB(), log)
		saleRepo = repository.NewPostgresSaleRepository(pool.GetDB(), log)
		staffRepo = repository.NewPostgresStaffRepository(pool.GetDB(), log)
	default:
		store, err = jsonstore.Open(cfg.DataDir, log)
		if err != nil {
			log.Error("failed to open json store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		productRepo = store.Products()
		saleRepo = store.Sales()
		staffRepo = store.Staff()
	}

	// 5. Initialize Redis for pending mobile-money payments; fall back to an
	// in-memory store when Redis is unreachable in development.
	var pendingRepo domain.PendingPaymentRepository
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		if cfg.Environment == "production" {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Warn("redis unavailable, pending payments held in memory", slog.String("error", err.Error()))
		pendingRepo = repository.NewMemoryPendingPaymentRepository()
	} else {
		defer redisClient.Close()
		pendingRepo = repository.NewPendingPaymentRepository(redisClient, log)
	}

	// 6. Initialize services
	alertHub := handler.NewAlertHub(log)
	inventoryService := service.NewInventoryService(productRepo, alertHub, log)
	salesService := service.NewSalesService(saleRepo, staffRepo, inventoryService, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "tillpoint")
	authService := service.NewAuthService(staffRepo, tokenManager, log)
	if err := authService.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Error("failed to bootstrap admin account", slog.String("error", err.Error()))
		os.Exit(1)
	}

	checkoutService := service.NewCheckoutService(
		inventoryService,
		salesService,
		pendingRepo,
		nil,
		alertHub,
		cfg.PendingPaymentTTL,
		log,
	)

	// The gateway confirms back into the checkout service, so it is wired
	// after both sides exist.
	gateway := payment.NewSimulator(cfg.PaymentConfirmDelay, nil, log)
	gateway.SetConfirmHandler(func(c payment.Confirmation) {
		if _, err := checkoutService.Confirm(context.Background(), c.CheckoutID, c.PaymentRef); err != nil {
			log.Warn("payment confirmation rejected",
				slog.String("checkout_id", c.CheckoutID),
				slog.String("error", err.Error()),
			)
		}
	})
	checkoutService.SetGateway(gateway)

	// 7. Initialize security components
	authzService := security.NewAuthorizationService(log)
	loginLimiter := ratelimit.NewLimiter(10, time.Minute) // login attempts per username

	// 8. Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, loginLimiter, log)
	productsHandler := handler.NewProductsHandler(inventoryService, authzService, log)
	productDetailHandler := handler.NewProductDetailHandler(inventoryService, authzService, log)
	lowStockHandler := handler.NewLowStockHandler(inventoryService, authzService)
	categoriesHandler := handler.NewCategoriesHandler()
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, authzService, log)
	checkoutStatusHandler := handler.NewCheckoutStatusHandler(checkoutService, authzService)
	checkoutConfirmHandler := handler.NewCheckoutConfirmHandler(checkoutService, authzService, log)
	salesHandler := handler.NewSalesHandler(salesService, authzService, log)
	saleDetailHandler := handler.NewSaleDetailHandler(salesService, authzService)
	bestSellersHandler := handler.NewBestSellersHandler(salesService, authzService)
	dashboardHandler := handler.NewDashboardHandler(salesService, authzService)
	dailyReportHandler := handler.NewDailyReportHandler(salesService, authzService)
	staffHandler := handler.NewStaffHandler(staffRepo, authService, authzService, log)
	staffDetailHandler := handler.NewStaffDetailHandler(staffRepo, authzService, log)
	exportHandler := handler.NewExportHandler(productRepo, saleRepo, staffRepo, authzService, log)
	alertsHandler := handler.NewAlertsHandler(alertHub, log, cfg.CORSAllowedOrigins)

	// 9. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/login", loginHandler)
	mux.Handle("GET /api/products", productsHandler)
	mux.Handle("POST /api/products", productsHandler)
	mux.Handle("GET /api/products/low-stock", lowStockHandler)
	mux.Handle("GET /api/products/{id}", productDetailHandler)
	mux.Handle("PUT /api/products/{id}", productDetailHandler)
	mux.Handle("DELETE /api/products/{id}", productDetailHandler)
	mux.Handle("GET /api/categories", categoriesHandler)
	mux.Handle("POST /api/checkouts", checkoutHandler)
	mux.Handle("GET /api/checkouts/{id}", checkoutStatusHandler)
	mux.Handle("POST /api/checkouts/{id}/confirm", checkoutConfirmHandler)
	mux.Handle("GET /api/sales", salesHandler)
	mux.Handle("GET /api/sales/{id}", saleDetailHandler)
	mux.Handle("GET /api/reports/best-sellers", bestSellersHandler)
	mux.Handle("GET /api/reports/dashboard", dashboardHandler)
	mux.Handle("GET /api/reports/daily", dailyReportHandler)
	mux.Handle("GET /api/staff", staffHandler)
	mux.Handle("POST /api/staff", staffHandler)
	mux.Handle("GET /api/staff/{id}", staffDetailHandler)
	mux.Handle("DELETE /api/staff/{id}", staffDetailHandler)
	mux.Handle("GET /api/export", exportHandler)
	mux.Handle("GET /ws/alerts", alertsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints (no auth required)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, checkCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer checkCancel()
		if pool != nil {
			if err := pool.Health(checkCtx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("database not ready"))
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(checkCtx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("redis not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> tracing -> metrics -> JWT -> content type -> CORS
	rootHandler := middleware.RequestIDMiddleware(log)(
		otelhttp.NewHandler(
			metrics.HTTPMetricsMiddleware(
				middleware.JWTMiddleware(tokenManager, log)(
					middleware.ValidateJSONContentType(log)(handlerWithCORS),
				),
			),
			"tillpoint",
		),
	)

	// 10. Start background workers
	sweeper := worker.NewPaymentSweeper(checkoutService, log, cfg.SweepInterval)
	go sweeper.Start(ctx)

	var flusher *worker.LedgerFlusher
	if store != nil {
		flusher = worker.NewLedgerFlusher(store, log, 5*time.Second)
		go flusher.Start(ctx)
	}

	if featureflags.Enabled("DEMO_TILL") {
		demo := worker.NewDemoTill(
			inventoryService,
			checkoutService,
			domain.CashierRef{ID: "demo-till", Username: "demo"},
			log,
			20*time.Second,
		)
		go demo.Start(ctx)
	}

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop workers
	if flusher != nil {
		flusher.Flush()
	}
	loginLimiter.Stop()
	log.Info("server stopped")
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
