package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/products", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Explicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/products?page=3&limit=10", nil)
	p := FromRequest(r)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 20, p.Offset)
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/products?page=-2&limit=billion", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
}

func TestFromRequest_LimitCapped(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/products?limit=5000", nil)
	p := FromRequest(r)

	assert.Equal(t, DefaultLimit, p.Limit)
}

func TestClamp(t *testing.T) {
	page, limit := Clamp(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultLimit, limit)

	page, limit = Clamp(2, 500)
	assert.Equal(t, 2, page)
	assert.Equal(t, MaxLimit, limit)
}
