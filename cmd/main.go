package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/auth"
	"github.com/senyabanana/surplus-market/internal/db"
	"github.com/senyabanana/surplus-market/internal/handlers"
	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/repository"
	"github.com/senyabanana/surplus-market/internal/router"
	"github.com/senyabanana/surplus-market/internal/router/config"
	"github.com/senyabanana/surplus-market/internal/services"
)

type stores struct {
	companies repository.CompanyRepository
	products  repository.ProductRepository
	requests  repository.ContactRequestRepository
	close     func()
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	zl, err := logger.New(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "surplus-market",
	})
	if err != nil {
		log.Fatal("cannot build logger:", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("cannot open storage", zap.Error(err))
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.MetricsPrefix, reg)

	jwtService := auth.NewJWTService(cfg.JWTSecret, 0)

	companyService := services.NewCompanyService(st.companies, m)
	productService := services.NewProductService(st.products, st.companies, m)
	requestService := services.NewContactRequestService(st.requests, st.products, st.companies, m)

	routes := router.InitRoutes(router.Deps{
		Companies:       handlers.NewCompanyHandler(companyService, cfg.RequestTimeout),
		Products:        handlers.NewProductHandler(productService, cfg.RequestTimeout),
		ContactRequests: handlers.NewContactRequestHandler(requestService, cfg.RequestTimeout),
		Verifier:        jwtService,
		Metrics:         m,
		Logger:          zl,
	})

	sweeper := services.NewExpirySweeper(st.requests, cfg.RequestTTL, cfg.ExpirySweepEvery, m, zl.Named("expiry"))
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zl.Info("server is listening", zap.String("address", cfg.ServerAddress), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config, zl *zap.Logger) (*stores, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		zl.Warn("using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{companies: mem, products: mem, requests: mem, close: func() {}}, nil
	default:
		if err := db.Migrate(cfg.MigrationURL, cfg.PostgresConn); err != nil {
			return nil, err
		}
		zl.Info("db migrated successfully")

		pool, err := db.InitDb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			companies: repository.NewPostgresCompanyRepository(pool),
			products:  repository.NewPostgresProductRepository(pool),
			requests:  repository.NewPostgresContactRequestRepository(pool),
			close:     pool.Close,
		}, nil
	}
}
