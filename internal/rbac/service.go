package rbac

import (
	"context"
	"strings"

	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service answers route authorization questions and manages grants.
type Service interface {
	IsAllowed(ctx context.Context, role enums.UserRole, routePath string) (bool, error)
	List(ctx context.Context) ([]models.RoutePermission, error)
	Grant(ctx context.Context, role enums.UserRole, routePath string) (*models.RoutePermission, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires the RBAC gate.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rbac repository required")
	}
	return &service{repo: repo}, nil
}

// IsAllowed matches the request path against the role's grant prefixes.
// Admin and owner short-circuit to allowed; other roles need a grant whose
// route path is a path prefix of the request path.
func (s *service) IsAllowed(ctx context.Context, role enums.UserRole, routePath string) (bool, error) {
	if !role.IsValid() {
		return false, nil
	}
	if role.BypassesRouteChecks() {
		return true, nil
	}
	routePath = normalizePath(routePath)
	if routePath == "" {
		return false, nil
	}

	grants, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route permissions")
	}
	for _, grant := range grants {
		if pathHasPrefix(routePath, normalizePath(grant.RoutePath)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) List(ctx context.Context) ([]models.RoutePermission, error) {
	permissions, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list route permissions")
	}
	return permissions, nil
}

func (s *service) Grant(ctx context.Context, role enums.UserRole, routePath string) (*models.RoutePermission, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}
	if role.BypassesRouteChecks() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role does not use route grants")
	}
	routePath = normalizePath(routePath)
	if routePath == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "route path required")
	}

	permission := &models.RoutePermission{Role: role, RoutePath: routePath}
	if err := s.repo.Create(ctx, permission); err != nil {
		if db.IsUniqueViolation(err, "idx_route_permissions_role_path") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "grant already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create route permission")
	}
	return permission, nil
}

func (s *service) Revoke(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "permission id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "route permission not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete route permission")
	}
	return nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}

// pathHasPrefix matches whole path segments so "/inventory" does not grant
// access to "/inventory-admin".
func pathHasPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
