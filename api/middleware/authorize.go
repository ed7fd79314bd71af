package middleware

import (
	"context"
	"net/http"

	"github.com/PremPatel1010/primetech-backend/api/responses"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/logger"
)

// RouteAuthorizer answers whether a role may touch a given route path.
type RouteAuthorizer interface {
	IsAllowed(ctx context.Context, role enums.UserRole, routePath string) (bool, error)
}

// Authorize gates a route group behind the stored route permission table.
// Admin and owner roles bypass the lookup entirely.
func Authorize(gate RouteAuthorizer, routePath string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseUserRole(RoleFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role"))
				return
			}
			if role.BypassesRouteChecks() {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := gate.IsAllowed(r.Context(), role, routePath)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check route permission"))
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "access to this area is not permitted"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
