package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookbazaar/internal/catalog"
	"github.com/xenking/bookbazaar/internal/domain/auth"
	"github.com/xenking/bookbazaar/internal/domain/book"
	"github.com/xenking/bookbazaar/internal/domain/inventory"
	"github.com/xenking/bookbazaar/internal/domain/order"
	"github.com/xenking/bookbazaar/internal/domain/payment"
	"github.com/xenking/bookbazaar/internal/handler"
	"github.com/xenking/bookbazaar/internal/storage/memory"
	"github.com/xenking/bookbazaar/internal/storage/postgres"
	"github.com/xenking/bookbazaar/pkg/health"
	"github.com/xenking/bookbazaar/pkg/httpmiddleware"
)

// stores groups the storage implementations selected by Config.Storage.
type stores struct {
	books  book.Repository
	stock  inventory.Stock
	orders order.Repository
	uow    order.UnitOfWork
	ping   health.Pinger
	close  func()
}

func openStores(ctx context.Context, lg *zap.Logger, cfg *Config) (*stores, error) {
	if cfg.Storage == StorageMemory {
		mem := memory.New()
		books, err := catalog.Load(cfg.SeedFile)
		if err != nil {
			return nil, errors.Wrap(err, "load seed catalog")
		}
		for _, b := range books {
			mem.PutBook(b)
		}
		lg.Info("Memory catalog seeded", zap.Int("books", len(books)), zap.String("file", cfg.SeedFile))
		return &stores{books: mem, stock: mem, orders: mem, uow: mem, ping: mem, close: func() {}}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	books := postgres.NewBookRepository(pool)
	return &stores{
		books:  books,
		stock:  books,
		orders: postgres.NewOrderRepository(pool),
		uow:    postgres.NewUnitOfWork(pool),
		ping:   pool,
		close:  pool.Close,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	st, err := openStores(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	healthSvc := health.New()
	healthSvc.Register(health.Readiness, "storage", 5*time.Second, health.PingCheck(st.ping))
	healthSvc.Register(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	orderService := order.NewService(st.stock, st.orders, st.uow,
		order.WithRestockOnCancel(cfg.Orders.RestockOnCancel),
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	gateway := payment.NewMockGateway(cfg.Payment.Delay, cfg.Payment.FailureRate)
	paymentService := payment.NewService(st.orders, gateway,
		payment.WithTimeout(cfg.Payment.Timeout),
		payment.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	)

	// HTTP handlers.
	h := handler.NewHandler(handler.HandlerConfig{Debug: cfg.Debug}, st.books, orderService, paymentService)
	verifier := auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)

	router := chi.NewRouter()
	router.Use(
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.Instrument("bazaar-api", m.TracerProvider(), m.MeterProvider()),
		httpmiddleware.LogRequests(),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	router.Mount("/api", h.Routes(verifier))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Settlement waits on the gateway, so writes may take up to the
		// payment timeout.
		WriteTimeout:   cfg.Payment.Timeout + 5*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        router,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
