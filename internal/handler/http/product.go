package http

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/handcrafthq/marketplace/internal/domain"
	"github.com/handcrafthq/marketplace/internal/repository"
	"github.com/handcrafthq/marketplace/internal/service"
	"github.com/handcrafthq/marketplace/pkg/httputil"
	"github.com/handcrafthq/marketplace/pkg/middleware"
	"github.com/handcrafthq/marketplace/pkg/pagination"
	"github.com/handcrafthq/marketplace/pkg/validator"
)

// Multipart bodies are capped a little above the image limit to leave room
// for the text fields.
const maxUploadBytes = 6 << 20

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(catalog *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// --- Request DTOs ---

// createProductForm is the multipart form for creating a listing. Category is
// folded to lowercase before validation; a price of zero is allowed.
type createProductForm struct {
	Name        string  `validate:"required,min=1,max=200"`
	Price       float64 `validate:"gte=0"`
	Description string  `validate:"required,max=5000"`
	Category    string  `validate:"required,oneof=art clothing ceramics jewellery wooden clay decor"`
	Tag         string  `validate:"omitempty,oneof=New Bestseller Trending Limited"`
}

// createProductJSON is the JSON alternative: the image is a URL referencing
// an already-hosted file instead of an upload.
type createProductJSON struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description string   `json:"description" validate:"required,max=5000"`
	Category    string   `json:"category" validate:"required,oneof=art clothing ceramics jewellery wooden clay decor"`
	Tag         string   `json:"tag" validate:"omitempty,oneof=New Bestseller Trending Limited"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Image       string   `json:"image" validate:"required,uri"`
}

func (req *createProductJSON) normalize() {
	req.Category = domain.NormalizeCategory(req.Category)
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseListFilter(w, r)
	if !ok {
		return
	}

	products, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(products, total, filter.Page, filter.Limit))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// CreateProduct handles POST /api/v1/products. Multipart bodies carry the
// image as a file upload; JSON bodies reference an already-hosted image URL.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.createFromJSON(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	form := createProductForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    domain.NormalizeCategory(r.FormValue("category")),
		Tag:         r.FormValue("tag"),
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "price must be a valid number"},
		})
		return
	}
	form.Price = price

	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.CreateProductInput{
		Name:        form.Name,
		Price:       form.Price,
		Description: form.Description,
		Category:    form.Category,
		Tag:         form.Tag,
	}

	if v := r.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "stock must be a non-negative integer"},
			})
			return
		}
		input.Stock = &stock
	}

	upload, file, ok := h.imageFromForm(w, r)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}
	input.Image = upload

	actorID := middleware.UserIDFromContext(r.Context())

	product, err := h.catalog.CreateProduct(r.Context(), actorID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

func (h *ProductHandler) createFromJSON(w http.ResponseWriter, r *http.Request) {
	var req createProductJSON
	if !decodeJSON(w, r, &req) {
		return
	}

	input := &service.CreateProductInput{
		Name:        req.Name,
		Price:       *req.Price,
		Description: req.Description,
		Category:    req.Category,
		Tag:         req.Tag,
		Stock:       req.Stock,
		ImageURL:    req.Image,
	}

	actorID := middleware.UserIDFromContext(r.Context())

	product, err := h.catalog.CreateProduct(r.Context(), actorID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{id} (multipart/form-data, all
// fields optional).
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	input := &service.UpdateProductInput{}

	if r.Form.Has("name") {
		v := r.FormValue("name")
		input.Name = &v
	}
	if r.Form.Has("description") {
		v := r.FormValue("description")
		input.Description = &v
	}
	if r.Form.Has("category") {
		v := r.FormValue("category")
		input.Category = &v
	}
	if r.Form.Has("tag") {
		v := r.FormValue("tag")
		input.Tag = &v
	}
	if r.Form.Has("price") {
		price, err := strconv.ParseFloat(r.FormValue("price"), 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "price must be a valid number"},
			})
			return
		}
		input.Price = &price
	}
	if r.Form.Has("stock") {
		stock, err := strconv.Atoi(r.FormValue("stock"))
		if err != nil || stock < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "stock must be a non-negative integer"},
			})
			return
		}
		input.Stock = &stock
	}

	upload, file, ok := h.imageFromForm(w, r)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}
	input.Image = upload

	actorID := middleware.UserIDFromContext(r.Context())
	actorRole := middleware.RoleFromContext(r.Context())

	product, err := h.catalog.UpdateProduct(r.Context(), actorID, actorRole, id.String(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actorID := middleware.UserIDFromContext(r.Context())
	actorRole := middleware.RoleFromContext(r.Context())

	if err := h.catalog.DeleteProduct(r.Context(), actorID, actorRole, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "deleted"}})
}

// ListCategories handles GET /api/v1/products/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.CategoryCounts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: counts})
}

// SellerProducts handles GET /api/v1/sellers/{sellerId}/products
func (h *ProductHandler) SellerProducts(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "sellerId"))
	if !ok {
		return
	}
	h.writeSellerProducts(w, r, sellerID.String())
}

// MyProducts handles GET /api/v1/sellers/me/products
func (h *ProductHandler) MyProducts(w http.ResponseWriter, r *http.Request) {
	h.writeSellerProducts(w, r, middleware.UserIDFromContext(r.Context()))
}

func (h *ProductHandler) writeSellerProducts(w http.ResponseWriter, r *http.Request, sellerID string) {
	params := pagination.FromRequest(r)

	products, total, err := h.catalog.SellerProducts(r.Context(), sellerID, params.Page, params.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(products, total, params.Page, params.Limit))
}

// --- Helpers ---

// imageFromForm extracts the optional "image" file from a multipart form.
// Returns (nil, nil, true) when no file was sent. The caller closes the file.
func (h *ProductHandler) imageFromForm(w http.ResponseWriter, r *http.Request) (*service.ImageUpload, multipart.File, bool) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, true
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid image upload: " + err.Error()},
		})
		return nil, nil, false
	}

	upload := &service.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	}
	return upload, file, true
}

func (h *ProductHandler) parseListFilter(w http.ResponseWriter, r *http.Request) (repository.ProductFilter, bool) {
	params := pagination.FromRequest(r)
	filter := repository.ProductFilter{
		Page:  params.Page,
		Limit: params.Limit,
	}

	q := r.URL.Query()

	if v := q.Get("category"); v != "" {
		filter.Category = &v
	}
	if v := q.Get("tag"); v != "" {
		filter.Tag = &v
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}
	if v := q.Get("seller_id"); v != "" {
		filter.SellerID = &v
	}
	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "min_price must be a valid number"},
			})
			return filter, false
		}
		filter.MinPrice = &price
	}
	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "max_price must be a valid number"},
			})
			return filter, false
		}
		filter.MaxPrice = &price
	}

	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "min_price must not exceed max_price"},
		})
		return filter, false
	}

	filter.Sort = q.Get("sort")
	filter.Order = q.Get("order")

	switch filter.Sort {
	case "", repository.SortCreatedAt, repository.SortPriceLow, repository.SortPriceHigh, repository.SortBestsellers:
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "sort must be one of: createdAt, price-low, price-high, bestsellers"},
		})
		return filter, false
	}

	return filter, true
}
