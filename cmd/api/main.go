package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrimart-backend/config"
	"agrimart-backend/internal/delivery/http/middleware"
	v1 "agrimart-backend/internal/delivery/http/v1"
	memcache "agrimart-backend/internal/infrastructure/cache"
	"agrimart-backend/internal/repository/postgres"
	"agrimart-backend/internal/usecase"
	"agrimart-backend/pkg/logger"
	"agrimart-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"
)

const (
	serviceName    = "agrimart-api"
	serviceVersion = "1.0.0"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	pgxPool, err := postgres.NewPgxPool(context.Background(), postgres.PoolConfig{
		DSN:             cfg.DBUrl,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to PostgreSQL")

	// Stores
	productStore := postgres.NewProductStore(pgxPool)
	orderStore := postgres.NewOrderStore(pgxPool)
	stockLedger := postgres.NewStockLedger(pgxPool)

	// Coupon lookups sit on the checkout hot path; wrap the store in a short
	// TTL cache. Cleanup sweep every 5 minutes.
	couponCache := memcache.NewMemoryCache(cfg.CouponCacheTTL, 5*time.Minute)
	couponStore := memcache.NewCouponStoreCache(postgres.NewCouponStore(pgxPool), couponCache, cfg.CouponCacheTTL)

	// Order commit engine
	pricing := usecase.NewPriceSummaryBuilder(usecase.PricingConfig{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		StandardShippingFee:   cfg.StandardShippingFee,
		TaxRate:               cfg.TaxRate,
	})
	checkoutUC := usecase.NewCheckoutUsecase(stockLedger, productStore, couponStore, orderStore, pricing)
	lifecycleUC := usecase.NewLifecycleUsecase(orderStore, stockLedger, couponStore, cfg.ReleaseCouponOnCancel)
	couponUC := usecase.NewCouponUsecase(couponStore)

	// Handlers
	checkoutHandler := v1.NewCheckoutHandler(checkoutUC, cfg.MaxCartQuantity)
	orderHandler := v1.NewOrderHandler(orderStore, lifecycleUC)
	adminCouponHandler := v1.NewAdminCouponHandler(couponUC)

	mux := http.NewServeMux()

	adminMiddleware := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	// Checkout & Orders (Protected)
	mux.Handle("POST /api/v1/checkout", middleware.AuthMiddleware(http.HandlerFunc(checkoutHandler.Checkout)))
	mux.Handle("POST /api/v1/checkout/coupon", middleware.AuthMiddleware(http.HandlerFunc(checkoutHandler.PreviewCoupon)))
	mux.Handle("GET /api/v1/orders", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.GetMyOrders)))
	mux.Handle("POST /api/v1/orders/{id}/cancel", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.CancelOrder)))

	// Admin
	mux.Handle("PATCH /api/v1/admin/orders/{id}/status", adminMiddleware(orderHandler.UpdateStatus))
	mux.Handle("GET /api/v1/admin/coupons", adminMiddleware(adminCouponHandler.ListCoupons))
	mux.Handle("POST /api/v1/admin/coupons", adminMiddleware(adminCouponHandler.CreateCoupon))
	mux.Handle("PUT /api/v1/admin/coupons/{id}", adminMiddleware(adminCouponHandler.UpdateCoupon))
	mux.Handle("DELETE /api/v1/admin/coupons/{id}", adminMiddleware(adminCouponHandler.DeleteCoupon))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok", "db": "connected"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler)

	addr := fmt.Sprintf(":%s", cfg.Port)

	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		rate.Limit(cfg.RateLimitPerSecond),
		cfg.RateLimitBurst,
		time.Minute,
		3*time.Minute,
	)

	handler := middleware.RequestLogger(mux)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.ServiceStart(serviceName, serviceVersion, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	pgxPool.Close()
	logger.ServiceStop(serviceName)
}
