package rbac

import (
	"context"
	"testing"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepo struct {
	grants []models.RoutePermission
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, permission *models.RoutePermission) error {
	permission.ID = uuid.New()
	f.grants = append(f.grants, *permission)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, grant := range f.grants {
		if grant.ID == id {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByRole(ctx context.Context, role enums.UserRole) ([]models.RoutePermission, error) {
	var out []models.RoutePermission
	for _, grant := range f.grants {
		if grant.Role == role {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]models.RoutePermission, error) {
	return f.grants, nil
}

func newGate(t *testing.T, grants ...models.RoutePermission) Service {
	t.Helper()
	svc, err := NewService(&fakeRepo{grants: grants})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestIsAllowedAdminBypass(t *testing.T) {
	gate := newGate(t)
	for _, role := range []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleOwner} {
		allowed, err := gate.IsAllowed(context.Background(), role, "/anything")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("role %s should bypass", role)
		}
	}
}

func TestIsAllowedPrefixMatch(t *testing.T) {
	gate := newGate(t, models.RoutePermission{Role: enums.UserRoleSales, RoutePath: "/sales-orders"})

	cases := []struct {
		path    string
		allowed bool
	}{
		{"/sales-orders", true},
		{"/sales-orders/abc/status", true},
		{"/sales-orders-export", false},
		{"/purchase-orders", false},
	}
	for _, tc := range cases {
		allowed, err := gate.IsAllowed(context.Background(), enums.UserRoleSales, tc.path)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tc.path, err)
		}
		if allowed != tc.allowed {
			t.Fatalf("path %s: expected allowed=%v", tc.path, tc.allowed)
		}
	}
}

func TestIsAllowedUnknownRole(t *testing.T) {
	gate := newGate(t)
	allowed, err := gate.IsAllowed(context.Background(), enums.UserRole("ghost"), "/sales-orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("unknown role must be denied")
	}
}

func TestGrantRejectsBypassRoles(t *testing.T) {
	gate := newGate(t)
	_, err := gate.Grant(context.Background(), enums.UserRoleAdmin, "/sales-orders")
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGrantNormalizesPath(t *testing.T) {
	gate := newGate(t)
	grant, err := gate.Grant(context.Background(), enums.UserRoleStores, "inventory/")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if grant.RoutePath != "/inventory" {
		t.Fatalf("expected normalized path, got %s", grant.RoutePath)
	}
}

func TestRevokeMissingGrant(t *testing.T) {
	gate := newGate(t)
	err := gate.Revoke(context.Background(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
