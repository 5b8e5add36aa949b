package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/handcrafthq/marketplace/internal/domain"
	"github.com/handcrafthq/marketplace/internal/event"
	"github.com/handcrafthq/marketplace/internal/repository"
	apperrors "github.com/handcrafthq/marketplace/pkg/errors"
)

// RatingService implements the review and rating logic.
type RatingService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewRatingService creates a new rating service. The producer may be nil.
func NewRatingService(
	products repository.ProductRepository,
	users repository.UserRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		products: products,
		users:    users,
		producer: producer,
		logger:   logger,
	}
}

// RateProductInput holds the parameters for rating a product.
type RateProductInput struct {
	ProductID string
	Score     float64
	Review    string
}

// RateProduct records the acting user's score for a product. A user has one
// rating per product; rating again replaces the score, keeps the stored
// review unless a new one is given, and refreshes the date.
func (s *RatingService) RateProduct(ctx context.Context, actorID string, input *RateProductInput) (*domain.Product, error) {
	if input.Score != math.Trunc(input.Score) || input.Score < 1 || input.Score > 5 {
		return nil, apperrors.InvalidInput("score must be an integer between 1 and 5")
	}

	user, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get rating user: %w", err)
	}

	rating := domain.Rating{
		UserID: user.ID,
		Name:   user.Name,
		Score:  input.Score,
		Review: input.Review,
		Date:   time.Now().UTC(),
	}

	product, err := s.products.UpsertRating(ctx, input.ProductID, rating)
	if err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	if s.producer != nil {
		if err := s.producer.PublishProductRated(ctx, product, user.ID, input.Score); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.rated event",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product rated",
		slog.String("product_id", product.ID),
		slog.String("user_id", user.ID),
		slog.Float64("score", input.Score),
		slog.Float64("average_rating", product.AverageRating),
	)

	return product, nil
}
