package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/handcrafthq/marketplace/internal/domain"
	"github.com/handcrafthq/marketplace/internal/event"
	"github.com/handcrafthq/marketplace/internal/repository"
	"github.com/handcrafthq/marketplace/internal/storage"
	apperrors "github.com/handcrafthq/marketplace/pkg/errors"
	"github.com/handcrafthq/marketplace/pkg/pagination"
)

const (
	categoryCountsCacheKey = "marketplace:categories:counts"
	categoryCountsCacheTTL = 5 * time.Minute
)

// CatalogService implements the business logic for product listings.
type CatalogService struct {
	repo     repository.ProductRepository
	users    repository.UserRepository
	storage  storage.Storage
	producer *event.Producer
	cache    *redis.Client
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service. The user repository,
// producer, and cache may be nil; all three are best-effort collaborators.
func NewCatalogService(
	repo repository.ProductRepository,
	users repository.UserRepository,
	store storage.Storage,
	producer *event.Producer,
	cache *redis.Client,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		repo:     repo,
		users:    users,
		storage:  store,
		producer: producer,
		cache:    cache,
		logger:   logger,
	}
}

// ImageUpload holds an incoming product image.
type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// CreateProductInput holds the parameters for creating a listing. The seller
// is always the authenticated actor, never a client-supplied value.
type CreateProductInput struct {
	Name        string
	Price       float64
	Description string
	Category    string
	Tag         string
	Stock       *int

	// Exactly one image source: an uploaded file, or a URL referencing an
	// already-hosted image.
	Image    *ImageUpload
	ImageURL string
}

// UpdateProductInput holds the parameters for updating a listing. Nil fields
// are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Price       *float64
	Description *string
	Category    *string
	Tag         *string
	Stock       *int
	Image       *ImageUpload
}

// CreateProduct validates the input, stores the image, and persists the
// listing owned by the acting user.
func (s *CatalogService) CreateProduct(ctx context.Context, actorID string, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Description == "" {
		return nil, apperrors.InvalidInput("product description is required")
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("category %q is not allowed", input.Category))
	}
	input.Category = domain.NormalizeCategory(input.Category)
	if !domain.IsValidTag(input.Tag) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("tag %q is not allowed", input.Tag))
	}
	if input.Image == nil && input.ImageURL == "" {
		return nil, apperrors.InvalidInput("product image is required")
	}

	now := time.Now().UTC()

	imageURL := input.ImageURL
	imageKey := ""
	if input.Image != nil {
		result, key, err := s.uploadImage(ctx, input.Image, now)
		if err != nil {
			return nil, err
		}
		imageURL = result.URL
		imageKey = key
	}

	stock := domain.DefaultStock
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		stock = *input.Stock
	}

	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		Image:       imageURL,
		ImageKey:    imageKey,
		Category:    input.Category,
		Tag:         input.Tag,
		Stock:       stock,
		SellerID:    actorID,
		Ratings:     []domain.Rating{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		// The image is already on disk; remove it so a failed insert does
		// not leave an orphan behind.
		if imageKey != "" {
			if delErr := s.storage.Delete(ctx, imageKey); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to clean up image after db error",
					slog.String("key", imageKey),
					slog.String("error", delErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidateCategoryCache(ctx)
	s.publishCreated(ctx, product)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("seller_id", actorID),
		slog.String("category", product.Category),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	s.resolveSellerName(ctx, product)
	return product, nil
}

// resolveSellerName fills in the seller's display name for read responses.
// A missing or unreadable user leaves the name empty instead of failing the
// read.
func (s *CatalogService) resolveSellerName(ctx context.Context, p *domain.Product) {
	if s.users == nil {
		return
	}
	u, err := s.users.GetByID(ctx, p.SellerID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to resolve seller name",
				slog.String("seller_id", p.SellerID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	p.SellerName = u.Name
}

// ListProducts returns listings matching the filter with the total count.
// Page and limit are clamped to sane bounds before hitting the store.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	filter.Page, filter.Limit = pagination.Clamp(filter.Page, filter.Limit)

	if filter.Category != nil {
		if !domain.IsValidCategory(*filter.Category) {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("category %q is not allowed", *filter.Category))
		}
		normalized := domain.NormalizeCategory(*filter.Category)
		filter.Category = &normalized
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// SellerProducts returns the listings owned by the given seller.
func (s *CatalogService) SellerProducts(ctx context.Context, sellerID string, page, limit int) ([]domain.Product, int, error) {
	filter := repository.ProductFilter{
		SellerID: &sellerID,
		Page:     page,
		Limit:    limit,
	}
	return s.ListProducts(ctx, filter)
}

// UpdateProduct applies the given changes if the actor owns the listing or
// is an admin.
func (s *CatalogService) UpdateProduct(ctx context.Context, actorID, actorRole, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if !domain.CanManageProduct(actorID, actorRole, product.SellerID) {
		return nil, apperrors.Forbidden("you do not own this listing")
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = *input.Name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Description != nil {
		if *input.Description == "" {
			return nil, apperrors.InvalidInput("product description must not be empty")
		}
		product.Description = *input.Description
	}
	if input.Category != nil {
		if !domain.IsValidCategory(*input.Category) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("category %q is not allowed", *input.Category))
		}
		product.Category = domain.NormalizeCategory(*input.Category)
	}
	if input.Tag != nil {
		if !domain.IsValidTag(*input.Tag) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("tag %q is not allowed", *input.Tag))
		}
		product.Tag = *input.Tag
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}

	oldImageKey := ""
	if input.Image != nil {
		result, key, err := s.uploadImage(ctx, input.Image, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		oldImageKey = product.ImageKey
		product.Image = result.URL
		product.ImageKey = key
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if input.Image != nil {
			if delErr := s.storage.Delete(ctx, product.ImageKey); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to clean up image after db error",
					slog.String("key", product.ImageKey),
					slog.String("error", delErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	// Drop the replaced image only after the row is committed.
	if oldImageKey != "" {
		if delErr := s.storage.Delete(ctx, oldImageKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced image",
				slog.String("key", oldImageKey),
				slog.String("error", delErr.Error()),
			)
		}
	}

	s.invalidateCategoryCache(ctx)
	s.publishUpdated(ctx, product)

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.String("actor_id", actorID),
	)

	return product, nil
}

// DeleteProduct removes a listing if the actor owns it or is an admin.
func (s *CatalogService) DeleteProduct(ctx context.Context, actorID, actorRole, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if !domain.CanManageProduct(actorID, actorRole, product.SellerID) {
		return apperrors.Forbidden("you do not own this listing")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if product.ImageKey != "" {
		if delErr := s.storage.Delete(ctx, product.ImageKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete image for removed listing",
				slog.String("key", product.ImageKey),
				slog.String("error", delErr.Error()),
			)
		}
	}

	s.invalidateCategoryCache(ctx)
	if s.producer != nil {
		if err := s.producer.PublishProductDeleted(ctx, id, product.SellerID); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
		slog.String("actor_id", actorID),
	)

	return nil
}

// CategoryCounts returns listing counts per category, cached briefly because
// the grouping is read far more often than the catalog changes.
func (s *CatalogService) CategoryCounts(ctx context.Context) ([]repository.CategoryCount, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, categoryCountsCacheKey).Bytes()
		if err == nil {
			var counts []repository.CategoryCount
			if err := json.Unmarshal(cached, &counts); err == nil {
				return counts, nil
			}
		} else if err != redis.Nil {
			s.logger.WarnContext(ctx, "category cache read failed", slog.String("error", err.Error()))
		}
	}

	counts, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, categoryCountsCacheKey, data, categoryCountsCacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "category cache write failed", slog.String("error", err.Error()))
			}
		}
	}

	return counts, nil
}

// uploadImage validates and stores an image, returning the storage result and key.
func (s *CatalogService) uploadImage(ctx context.Context, img *ImageUpload, now time.Time) (*storage.UploadResult, string, error) {
	if !domain.IsAllowedImageType(img.ContentType) {
		return nil, "", apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed, only image/jpeg", img.ContentType))
	}
	if img.Size <= 0 {
		return nil, "", apperrors.InvalidInput("image size must be greater than zero")
	}
	if img.Size > domain.MaxImageSize {
		return nil, "", apperrors.InvalidInput(fmt.Sprintf("image size %d exceeds maximum of %d bytes", img.Size, domain.MaxImageSize))
	}

	key := domain.NewImageKey(now)
	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: img.ContentType,
		Size:        img.Size,
		Data:        img.Data,
	})
	if err != nil {
		return nil, "", apperrors.StorageFailed(err)
	}
	return result, key, nil
}

func (s *CatalogService) invalidateCategoryCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, categoryCountsCacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "category cache invalidation failed", slog.String("error", err.Error()))
	}
}

func (s *CatalogService) publishCreated(ctx context.Context, product *domain.Product) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) publishUpdated(ctx context.Context, product *domain.Product) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}
