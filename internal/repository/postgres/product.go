package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/handcrafthq/marketplace/internal/domain"
	"github.com/handcrafthq/marketplace/internal/repository"
	"github.com/handcrafthq/marketplace/pkg/database"
	apperrors "github.com/handcrafthq/marketplace/pkg/errors"
)

const productColumns = "id, name, price, description, image, image_key, category, tag, stock, seller_id, ratings, average_rating, created_at, updated_at"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	ratingsJSON, err := json.Marshal(p.Ratings)
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}

	query := `
		INSERT INTO products (id, name, price, description, image, image_key, category, tag, stock, seller_id, ratings, average_rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Price,
		p.Description,
		p.Image,
		p.ImageKey,
		p.Category,
		p.Tag,
		p.Stock,
		p.SellerID,
		ratingsJSON,
		p.AverageRating,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "id", p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	ctx, end := database.TraceQuery(ctx, "ProductGetByID", query)
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.Tag != nil {
		conditions = append(conditions, fmt.Sprintf("tag = $%d", argIndex))
		args = append(args, *filter.Tag)
		argIndex++
	}

	if filter.SellerID != nil {
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIndex))
		args = append(args, *filter.SellerID)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Single query returns rows and total via a window function.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, orderClause(filter.Sort, filter.Order), argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 12
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ProductList", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []domain.Product
		total    int
	)

	for rows.Next() {
		var (
			p           domain.Product
			ratingsJSON []byte
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.ImageKey,
			&p.Category, &p.Tag, &p.Stock, &p.SellerID,
			&ratingsJSON, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if err := unmarshalRatings(ratingsJSON, &p); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, total, nil
}

// orderClause maps an API sort key to a SQL ORDER BY expression. Price and
// bestseller sorts have a fixed direction; only createdAt honors the
// requested order.
func orderClause(sort, order string) string {
	switch sort {
	case repository.SortPriceLow:
		return "price ASC"
	case repository.SortPriceHigh:
		return "price DESC"
	case repository.SortBestsellers:
		return "average_rating DESC"
	case repository.SortCreatedAt, "":
		if strings.EqualFold(order, "asc") {
			return "created_at ASC"
		}
		return "created_at DESC"
	default:
		return "created_at DESC"
	}
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	ratingsJSON, err := json.Marshal(p.Ratings)
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, price = $2, description = $3, image = $4, image_key = $5,
		    category = $6, tag = $7, stock = $8, ratings = $9, average_rating = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Price,
		p.Description,
		p.Image,
		p.ImageKey,
		p.Category,
		p.Tag,
		p.Stock,
		ratingsJSON,
		p.AverageRating,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// UpsertRating applies one user's rating inside a transaction. The product
// row is locked for the duration so concurrent ratings serialize instead of
// losing updates.
func (r *ProductRepository) UpsertRating(ctx context.Context, productID string, rating domain.Rating) (*domain.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 FOR UPDATE`, productColumns)

	ctx, end := database.TraceQuery(ctx, "ProductUpsertRating", query)
	p, err := scanProduct(tx.QueryRow(ctx, query, productID))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	p.UpsertRating(rating.UserID, rating.Name, rating.Score, rating.Review, rating.Date)
	p.UpdatedAt = rating.Date

	ratingsJSON, err := json.Marshal(p.Ratings)
	if err != nil {
		return nil, fmt.Errorf("marshal ratings: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET ratings = $1, average_rating = $2, updated_at = $3 WHERE id = $4`,
		ratingsJSON, p.AverageRating, p.UpdatedAt, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("update ratings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return p, nil
}

// CategoryCounts returns listing counts grouped by category, largest group
// first with the category name as tie-break.
func (r *ProductRepository) CategoryCounts(ctx context.Context) ([]repository.CategoryCount, error) {
	query := `
		SELECT category, count(*) AS listing_count
		FROM products
		GROUP BY category
		ORDER BY listing_count DESC, category ASC`

	ctx, end := database.TraceQuery(ctx, "ProductCategoryCounts", query)
	rows, err := r.pool.Query(ctx, query)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	var counts []repository.CategoryCount
	for rows.Next() {
		var c repository.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	if counts == nil {
		counts = []repository.CategoryCount{}
	}

	return counts, nil
}

// scanProduct scans a single product row in productColumns order.
func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p           domain.Product
		ratingsJSON []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.ImageKey,
		&p.Category, &p.Tag, &p.Stock, &p.SellerID,
		&ratingsJSON, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalRatings(ratingsJSON, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func unmarshalRatings(data []byte, p *domain.Product) error {
	if data == nil {
		p.Ratings = []domain.Rating{}
		return nil
	}
	if err := json.Unmarshal(data, &p.Ratings); err != nil {
		return fmt.Errorf("unmarshal ratings: %w", err)
	}
	if p.Ratings == nil {
		p.Ratings = []domain.Rating{}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
