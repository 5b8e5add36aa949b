package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/handcrafthq/marketplace/internal/domain"
	pkgkafka "github.com/handcrafthq/marketplace/pkg/kafka"
)

// Kafka topics for catalog domain events.
const (
	TopicProductCreated = "marketplace.product.created"
	TopicProductUpdated = "marketplace.product.updated"
	TopicProductDeleted = "marketplace.product.deleted"
	TopicProductRated   = "marketplace.product.rated"
)

const AggregateTypeProduct = "product"

// Source identifier for events originating from this service.
const SourceMarketplace = "marketplace"

// ProductData is the payload shared by product.created and product.updated.
type ProductData struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Category      string  `json:"category"`
	Tag           string  `json:"tag,omitempty"`
	Stock         int     `json:"stock"`
	SellerID      string  `json:"seller_id"`
	AverageRating float64 `json:"average_rating"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
}

// ProductRatedData is the payload for a product.rated event.
type ProductRatedData struct {
	ProductID     string  `json:"product_id"`
	UserID        string  `json:"user_id"`
	Score         float64 `json:"score"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Category:      p.Category,
		Tag:           p.Tag,
		Stock:         p.Stock,
		SellerID:      p.SellerID,
		AverageRating: p.AverageRating,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, productID, sellerID string) error {
	return p.publish(ctx, TopicProductDeleted, productID, ProductDeletedData{ID: productID, SellerID: sellerID})
}

// PublishProductRated publishes a product.rated event.
func (p *Producer) PublishProductRated(ctx context.Context, product *domain.Product, userID string, score float64) error {
	return p.publish(ctx, TopicProductRated, product.ID, ProductRatedData{
		ProductID:     product.ID,
		UserID:        userID,
		Score:         score,
		AverageRating: product.AverageRating,
		RatingCount:   len(product.Ratings),
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeProduct, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
