package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/handcrafthq/marketplace/internal/domain"
	apperrors "github.com/handcrafthq/marketplace/pkg/errors"
)

func newTestRating(products *mockProductRepository, users *mockUserRepository) *RatingService {
	return NewRatingService(products, users, nil, newTestLogger())
}

func TestRateProduct_Success(t *testing.T) {
	products := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestRating(products, users)

	users.On("GetByID", mock.Anything, "user-1").Return(&domain.User{
		ID: "user-1", Name: "Maya", Role: domain.RoleUser,
	}, nil)

	rated := &domain.Product{
		ID:            "prod-1",
		Ratings:       []domain.Rating{{UserID: "user-1", Name: "Maya", Score: 4, Review: "lovely glaze"}},
		AverageRating: 4,
	}
	products.On("UpsertRating", mock.Anything, "prod-1", mock.MatchedBy(func(r domain.Rating) bool {
		return r.UserID == "user-1" && r.Name == "Maya" && r.Score == 4 && r.Review == "lovely glaze" && !r.Date.IsZero()
	})).Return(rated, nil)

	product, err := svc.RateProduct(context.Background(), "user-1", &RateProductInput{
		ProductID: "prod-1",
		Score:     4,
		Review:    "lovely glaze",
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, product.AverageRating)
	products.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestRateProduct_ScoreOutOfRange(t *testing.T) {
	products := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestRating(products, users)

	for _, score := range []float64{0, 0.5, 5.5, -1} {
		_, err := svc.RateProduct(context.Background(), "user-1", &RateProductInput{
			ProductID: "prod-1",
			Score:     score,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "score %v", score)
	}
	products.AssertNotCalled(t, "UpsertRating")
}

func TestRateProduct_FractionalScoreRejected(t *testing.T) {
	products := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestRating(products, users)

	for _, score := range []float64{1.5, 2.5, 4.999} {
		_, err := svc.RateProduct(context.Background(), "user-1", &RateProductInput{
			ProductID: "prod-1",
			Score:     score,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "score %v", score)
	}
	products.AssertNotCalled(t, "UpsertRating")
	users.AssertNotCalled(t, "GetByID")
}

func TestRateProduct_BoundaryScores(t *testing.T) {
	products := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestRating(products, users)

	users.On("GetByID", mock.Anything, "user-1").Return(&domain.User{ID: "user-1", Name: "Maya"}, nil)
	products.On("UpsertRating", mock.Anything, "prod-1", mock.Anything).
		Return(&domain.Product{ID: "prod-1"}, nil)

	for _, score := range []float64{1, 5} {
		_, err := svc.RateProduct(context.Background(), "user-1", &RateProductInput{
			ProductID: "prod-1",
			Score:     score,
		})
		assert.NoError(t, err, "score %v", score)
	}
}

func TestRateProduct_UnknownUser(t *testing.T) {
	products := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestRating(products, users)

	users.On("GetByID", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	_, err := svc.RateProduct(context.Background(), "ghost", &RateProductInput{ProductID: "prod-1", Score: 3})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	products.AssertNotCalled(t, "UpsertRating")
}

func TestRateProduct_ProductNotFound(t *testing.T) {
	products := new(mockProductRepository)
	users := new(mockUserRepository)
	svc := newTestRating(products, users)

	users.On("GetByID", mock.Anything, "user-1").Return(&domain.User{ID: "user-1", Name: "Maya"}, nil)
	products.On("UpsertRating", mock.Anything, "missing", mock.Anything).Return(nil, apperrors.ErrNotFound)

	_, err := svc.RateProduct(context.Background(), "user-1", &RateProductInput{ProductID: "missing", Score: 3})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
