package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/PremPatel1010/primetech-backend/api/routes"
	"github.com/PremPatel1010/primetech-backend/internal/auth"
	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/manufacturing"
	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/internal/orders"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/internal/purchasing"
	"github.com/PremPatel1010/primetech-backend/internal/rbac"
	"github.com/PremPatel1010/primetech-backend/internal/users"
	"github.com/PremPatel1010/primetech-backend/pkg/auth/session"
	"github.com/PremPatel1010/primetech-backend/pkg/config"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/logger"
	"github.com/PremPatel1010/primetech-backend/pkg/metrics"
	"github.com/PremPatel1010/primetech-backend/pkg/migrate"
	"github.com/PremPatel1010/primetech-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()

	notificationsRepo := notifications.NewRepository(gdb)
	emitter, err := notifications.NewEmitter(notificationsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification emitter", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gdb),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	gate, err := rbac.NewService(rbac.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create rbac service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(gdb)
	productsService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	inventoryRepo := inventory.NewRepository(gdb)
	inventoryService, err := inventory.NewService(inventoryRepo, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	manufacturingService, err := manufacturing.NewService(manufacturing.ServiceParams{
		Repo:      manufacturing.NewRepository(gdb),
		Products:  productsRepo,
		Materials: inventoryRepo,
		Finished:  inventoryService,
		Tx:        dbClient,
		Emitter:   emitter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create manufacturing service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Config:    cfg.Orders,
		Repo:      orders.NewRepository(gdb),
		Products:  productsRepo,
		Inventory: inventoryRepo,
		Finished:  inventoryService,
		Batches:   manufacturingService,
		Tx:        dbClient,
		Emitter:   emitter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	purchasingService, err := purchasing.NewService(purchasing.NewRepository(gdb), inventoryRepo, dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchasing service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.NewRegistry())

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			httpMetrics,
			authService,
			gate,
			productsService,
			inventoryService,
			ordersService,
			manufacturingService,
			purchasingService,
			notificationsService,
		),
	}

	stop, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		err := server.Shutdown(shutdownCtx)
		err = multierr.Append(err, dbClient.Close())
		err = multierr.Append(err, redisClient.Close())
		if err != nil {
			logg.Error(ctx, "shutdown finished with errors", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}
