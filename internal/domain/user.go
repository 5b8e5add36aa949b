package domain

import (
	"time"
)

// User roles. The set is closed; there is no role hierarchy beyond the
// admin override checked at the service layer.
const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User represents a marketplace account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRoles returns the set of accepted user roles.
func ValidRoles() []string {
	return []string{RoleUser, RoleSeller, RoleAdmin}
}

// IsValidRole checks whether the given string is an accepted role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// CanManageProduct reports whether an actor may modify or delete the given
// product. Owners manage their own listings; admins manage any listing.
func CanManageProduct(actorID, actorRole, productSellerID string) bool {
	if actorRole == RoleAdmin {
		return true
	}
	return actorID != "" && actorID == productSellerID
}
