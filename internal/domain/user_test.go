package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles() {
		assert.True(t, IsValidRole(r), "expected %q to be valid", r)
	}
	assert.False(t, IsValidRole("superuser"))
	assert.False(t, IsValidRole(""))
}

func TestCanManageProduct_Owner(t *testing.T) {
	assert.True(t, CanManageProduct("seller-1", RoleSeller, "seller-1"))
}

func TestCanManageProduct_NonOwner(t *testing.T) {
	assert.False(t, CanManageProduct("seller-2", RoleSeller, "seller-1"))
}

func TestCanManageProduct_AdminOverridesOwnership(t *testing.T) {
	assert.True(t, CanManageProduct("admin-1", RoleAdmin, "seller-1"))
}

func TestCanManageProduct_NonOwningUserCannotManage(t *testing.T) {
	assert.False(t, CanManageProduct("user-1", RoleUser, "seller-1"))
}

func TestCanManageProduct_EmptyActorNeverOwns(t *testing.T) {
	assert.False(t, CanManageProduct("", RoleSeller, ""))
}
