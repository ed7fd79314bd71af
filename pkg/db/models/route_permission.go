package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/PremPatel1010/primetech-backend/pkg/enums"
)

// RoutePermission grants a role access to a route path prefix. The RBAC gate
// matches the longest grant prefix against the request path; admin and owner
// bypass the table entirely.
type RoutePermission struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Role       enums.UserRole `gorm:"column:role;type:text;not null;uniqueIndex:idx_route_permissions_role_path"`
	RoutePath  string         `gorm:"column:route_path;not null;uniqueIndex:idx_route_permissions_role_path"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
}
