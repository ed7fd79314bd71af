package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/PremPatel1010/primetech-backend/internal/auth"
	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/manufacturing"
	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/internal/orders"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/internal/purchasing"
	"github.com/PremPatel1010/primetech-backend/internal/users"
	pkgauth "github.com/PremPatel1010/primetech-backend/pkg/auth"
	"github.com/PremPatel1010/primetech-backend/pkg/auth/session"
	"github.com/PremPatel1010/primetech-backend/pkg/config"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	"github.com/PremPatel1010/primetech-backend/pkg/logger"
	"github.com/PremPatel1010/primetech-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, staleAccessToken, refreshToken string) (*auth.TokenPair, error) {
	return &auth.TokenPair{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

func (stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

// stubGate mirrors the seeded grants: sales staff see the order book,
// nothing on the shop floor.
type stubGate struct{}

func (stubGate) IsAllowed(ctx context.Context, role enums.UserRole, routePath string) (bool, error) {
	if role == enums.UserRoleSales {
		return routePath == "/sales-orders" || routePath == "/products", nil
	}
	return false, nil
}

func (stubGate) List(ctx context.Context) ([]models.RoutePermission, error) {
	return []models.RoutePermission{}, nil
}

func (stubGate) Grant(ctx context.Context, role enums.UserRole, routePath string) (*models.RoutePermission, error) {
	return &models.RoutePermission{Role: role, RoutePath: routePath}, nil
}

func (stubGate) Revoke(ctx context.Context, id uuid.UUID) error { return nil }

type stubProducts struct{}

func (stubProducts) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return &models.Product{ID: id}, nil
}

func (stubProducts) List(ctx context.Context, params products.ListParams) (*products.ListResult, error) {
	return &products.ListResult{}, nil
}

type stubInventory struct{}

func (stubInventory) CreateMaterial(ctx context.Context, input inventory.CreateMaterialInput) (*models.RawMaterial, error) {
	return &models.RawMaterial{}, nil
}

func (stubInventory) GetMaterial(ctx context.Context, id uuid.UUID) (*models.RawMaterial, error) {
	return &models.RawMaterial{ID: id}, nil
}

func (stubInventory) ListMaterials(ctx context.Context, params inventory.ListParams) (*inventory.MaterialList, error) {
	return &inventory.MaterialList{}, nil
}

func (stubInventory) UpdateMaterial(ctx context.Context, id uuid.UUID, input inventory.UpdateMaterialInput) (*models.RawMaterial, error) {
	return &models.RawMaterial{ID: id}, nil
}

func (stubInventory) DeleteMaterial(ctx context.Context, id uuid.UUID) error { return nil }

func (stubInventory) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.RawMaterial, error) {
	return &models.RawMaterial{ID: id}, nil
}

func (stubInventory) ListFinished(ctx context.Context, params inventory.ListParams) (*inventory.FinishedList, error) {
	return &inventory.FinishedList{}, nil
}

func (stubInventory) GetFinishedByProduct(ctx context.Context, productID uuid.UUID) (*models.FinishedProduct, error) {
	return &models.FinishedProduct{ProductID: productID}, nil
}

func (stubInventory) DeductFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return nil
}

func (stubInventory) AddFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return nil
}

type stubOrders struct{}

func (stubOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderResult, error) {
	return &orders.OrderResult{Order: &models.SalesOrder{}}, nil
}

func (stubOrders) GetOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	return &models.SalesOrder{ID: id}, nil
}

func (stubOrders) ListOrders(ctx context.Context, params orders.ListParams) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrders) UpdateStatus(ctx context.Context, id uuid.UUID, target enums.SalesOrderStatus) (*models.SalesOrder, error) {
	return &models.SalesOrder{ID: id, Status: target}, nil
}

type stubManufacturing struct{}

func (stubManufacturing) CreateBatch(ctx context.Context, input manufacturing.CreateBatchInput) (*models.ManufacturingBatch, error) {
	return &models.ManufacturingBatch{}, nil
}

func (stubManufacturing) CreateForOrder(ctx context.Context, tx *gorm.DB, input manufacturing.OrderBatchInput) (*models.ManufacturingBatch, error) {
	return &models.ManufacturingBatch{}, nil
}

func (stubManufacturing) GetBatch(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error) {
	return &models.ManufacturingBatch{ID: id}, nil
}

func (stubManufacturing) ListBatches(ctx context.Context, params manufacturing.ListParams) (*manufacturing.BatchList, error) {
	return &manufacturing.BatchList{}, nil
}

func (stubManufacturing) AdvanceStage(ctx context.Context, batchID uuid.UUID, stage string) (*models.ManufacturingBatch, error) {
	return &models.ManufacturingBatch{ID: batchID}, nil
}

func (stubManufacturing) DeleteBatch(ctx context.Context, id uuid.UUID) error { return nil }

func (stubManufacturing) CheckFeasibilityForProduct(ctx context.Context, productID uuid.UUID, quantity int) (*manufacturing.FeasibilityResult, error) {
	return &manufacturing.FeasibilityResult{Feasible: true}, nil
}

type stubPurchasing struct{}

func (stubPurchasing) CreateSupplier(ctx context.Context, input purchasing.SupplierInput) (*models.Supplier, error) {
	return &models.Supplier{}, nil
}

func (stubPurchasing) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	return &models.Supplier{ID: id}, nil
}

func (stubPurchasing) ListSuppliers(ctx context.Context, params purchasing.ListParams) (*purchasing.SupplierList, error) {
	return &purchasing.SupplierList{}, nil
}

func (stubPurchasing) UpdateSupplier(ctx context.Context, id uuid.UUID, input purchasing.SupplierInput) (*models.Supplier, error) {
	return &models.Supplier{ID: id}, nil
}

func (stubPurchasing) DeleteSupplier(ctx context.Context, id uuid.UUID) error { return nil }

func (stubPurchasing) CreatePurchaseOrder(ctx context.Context, input purchasing.CreatePurchaseOrderInput) (*models.PurchaseOrder, error) {
	return &models.PurchaseOrder{}, nil
}

func (stubPurchasing) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return &models.PurchaseOrder{ID: id}, nil
}

func (stubPurchasing) ListPurchaseOrders(ctx context.Context, params purchasing.ListPurchaseOrdersParams) (*purchasing.PurchaseOrderList, error) {
	return &purchasing.PurchaseOrderList{}, nil
}

func (stubPurchasing) MarkOrdered(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return &models.PurchaseOrder{ID: id}, nil
}

func (stubPurchasing) ReceivePurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return &models.PurchaseOrder{ID: id}, nil
}

func (stubPurchasing) CancelPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return &models.PurchaseOrder{ID: id}, nil
}

type stubNotifications struct{}

func (stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotifications) MarkRead(ctx context.Context, notificationID uuid.UUID) error { return nil }

func (stubNotifications) MarkAllRead(ctx context.Context) (int64, error) { return 0, nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSessions{},
		nil,
		stubAuthService{},
		stubGate{},
		stubProducts{},
		stubInventory{},
		stubOrders{},
		stubManufacturing{},
		stubPurchasing{},
		stubNotifications{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestProtectedRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales-orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestRouteGateEnforcesGrants(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.UserRoleSales)

	allowed := httptest.NewRequest(http.MethodGet, "/api/v1/sales-orders/", nil)
	allowed.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, allowed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for granted route got %d", resp.Code)
	}

	denied := httptest.NewRequest(http.MethodGet, "/api/v1/manufacturing/batches/", nil)
	denied.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, denied)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for ungranted route got %d", resp.Code)
	}
}

func TestAdminRoleBypassesGate(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/raw-materials/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPermissionAdminRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	viewer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/permissions/", nil)
	viewer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleViewer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, viewer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/permissions/", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestLoginRouteIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", loginBody())
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from stub login got %d", resp.Code)
	}
}

func loginBody() io.Reader {
	return strings.NewReader(`{"email":"ops@primetech.in","password":"secret-pass"}`)
}
