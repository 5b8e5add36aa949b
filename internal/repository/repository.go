package repository

import (
	"context"

	"github.com/handcrafthq/marketplace/internal/domain"
)

// Product list sort keys accepted by the API.
const (
	SortCreatedAt   = "createdAt"
	SortPriceLow    = "price-low"
	SortPriceHigh   = "price-high"
	SortBestsellers = "bestsellers"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Category *string
	Tag      *string
	Search   *string
	SellerID *string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Order    string // "asc" or "desc"; only honored with SortCreatedAt
	Page     int
	Limit    int
}

// CategoryCount pairs a category with its number of listings.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ProductRepository defines the interface for product persistence.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching the given filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// UpsertRating records or replaces one user's rating atomically and
	// returns the product with its refreshed average.
	UpsertRating(ctx context.Context, productID string, rating domain.Rating) (*domain.Product, error)

	// CategoryCounts returns listing counts grouped by category, most
	// populous first.
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)
}

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
