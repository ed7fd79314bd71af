package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PremPatel1010/primetech-backend/api/controllers"
	"github.com/PremPatel1010/primetech-backend/api/middleware"
	"github.com/PremPatel1010/primetech-backend/internal/auth"
	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/manufacturing"
	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/internal/orders"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/internal/purchasing"
	"github.com/PremPatel1010/primetech-backend/internal/rbac"
	"github.com/PremPatel1010/primetech-backend/pkg/auth/session"
	"github.com/PremPatel1010/primetech-backend/pkg/config"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	"github.com/PremPatel1010/primetech-backend/pkg/logger"
	"github.com/PremPatel1010/primetech-backend/pkg/metrics"
	"github.com/PremPatel1010/primetech-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	authService auth.Service,
	gate rbac.Service,
	productsService products.Service,
	inventoryService inventory.Service,
	ordersService orders.Service,
	manufacturingService manufacturing.Service,
	purchasingService purchasing.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
		r.Method(http.MethodGet, "/metrics", httpMetrics.Handler())
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, database, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Get("/me", controllers.AuthMe(authService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/products", logg))
			r.Get("/", controllers.ListProducts(productsService, logg))
			r.Get("/{id}", controllers.GetProduct(productsService, logg))
			r.Get("/{id}/feasibility", controllers.CheckProductFeasibility(manufacturingService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/inventory", logg))
			r.Route("/raw-materials", func(r chi.Router) {
				r.Get("/", controllers.ListRawMaterials(inventoryService, logg))
				r.Post("/", controllers.CreateRawMaterial(inventoryService, logg))
				r.Get("/{id}", controllers.GetRawMaterial(inventoryService, logg))
				r.Patch("/{id}", controllers.UpdateRawMaterial(inventoryService, logg))
				r.Delete("/{id}", controllers.DeleteRawMaterial(inventoryService, logg))
				r.Post("/{id}/adjust", controllers.AdjustRawMaterialStock(inventoryService, logg))
			})
			r.Route("/finished-products", func(r chi.Router) {
				r.Get("/", controllers.ListFinishedProducts(inventoryService, logg))
				r.Get("/{productID}", controllers.GetFinishedProduct(inventoryService, logg))
			})
		})

		r.Route("/sales-orders", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/sales-orders", logg))
			r.Get("/", controllers.ListSalesOrders(ordersService, logg))
			r.Post("/", controllers.CreateSalesOrder(ordersService, logg))
			r.Get("/{id}", controllers.GetSalesOrder(ordersService, logg))
			r.Patch("/{id}/status", controllers.UpdateSalesOrderStatus(ordersService, logg))
		})

		r.Route("/manufacturing", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/manufacturing", logg))
			r.Route("/batches", func(r chi.Router) {
				r.Get("/", controllers.ListBatches(manufacturingService, logg))
				r.Post("/", controllers.CreateBatch(manufacturingService, logg))
				r.Get("/{id}", controllers.GetBatch(manufacturingService, logg))
				r.Patch("/{id}/stage", controllers.AdvanceBatchStage(manufacturingService, logg))
				r.Delete("/{id}", controllers.DeleteBatch(manufacturingService, logg))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/suppliers", logg))
			r.Get("/", controllers.ListSuppliers(purchasingService, logg))
			r.Post("/", controllers.CreateSupplier(purchasingService, logg))
			r.Get("/{id}", controllers.GetSupplier(purchasingService, logg))
			r.Put("/{id}", controllers.UpdateSupplier(purchasingService, logg))
			r.Delete("/{id}", controllers.DeleteSupplier(purchasingService, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/purchase-orders", logg))
			r.Get("/", controllers.ListPurchaseOrders(purchasingService, logg))
			r.Post("/", controllers.CreatePurchaseOrder(purchasingService, logg))
			r.Get("/{id}", controllers.GetPurchaseOrder(purchasingService, logg))
			r.Post("/{id}/order", controllers.MarkPurchaseOrderOrdered(purchasingService, logg))
			r.Post("/{id}/receive", controllers.ReceivePurchaseOrder(purchasingService, logg))
			r.Post("/{id}/cancel", controllers.CancelPurchaseOrder(purchasingService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.Authorize(gate, "/notifications", logg))
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/admin/permissions", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleOwner, enums.UserRoleAdmin))
			r.Get("/", controllers.ListRoutePermissions(gate, logg))
			r.Post("/", controllers.GrantRoutePermission(gate, logg))
			r.Delete("/{id}", controllers.RevokeRoutePermission(gate, logg))
		})
	})

	return r
}
