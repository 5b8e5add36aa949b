package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/handcrafthq/marketplace/internal/service"
	"github.com/handcrafthq/marketplace/pkg/httputil"
	"github.com/handcrafthq/marketplace/pkg/middleware"
)

// RatingHandler handles HTTP requests for product ratings.
type RatingHandler struct {
	ratings *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(ratings *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		ratings: ratings,
		logger:  logger,
	}
}

type rateProductRequest struct {
	Score  float64 `json:"score" validate:"required,gte=1,lte=5"`
	Review string  `json:"review" validate:"max=5000"`
}

// RateProduct handles POST /api/v1/products/{id}/ratings
func (h *RatingHandler) RateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req rateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actorID := middleware.UserIDFromContext(r.Context())

	product, err := h.ratings.RateProduct(r.Context(), actorID, &service.RateProductInput{
		ProductID: id.String(),
		Score:     req.Score,
		Review:    req.Review,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}
