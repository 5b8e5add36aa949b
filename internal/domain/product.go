package domain

import (
	"strings"
	"time"
)

// Product categories. The catalog accepts only these values.
const (
	CategoryArt       = "art"
	CategoryClothing  = "clothing"
	CategoryCeramics  = "ceramics"
	CategoryJewellery = "jewellery"
	CategoryWooden    = "wooden"
	CategoryClay      = "clay"
	CategoryDecor     = "decor"
)

// Merchandising tags. The empty string means untagged.
const (
	TagNew        = "New"
	TagBestseller = "Bestseller"
	TagTrending   = "Trending"
	TagLimited    = "Limited"
)

// DefaultStock is applied when a listing is created without a stock count.
const DefaultStock = 10

// Product represents a handcrafted listing in the catalog. Ratings are
// embedded and travel with the product row, so a rating write is a
// read-modify-write of a single product.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	ImageKey      string    `json:"-"`
	Category      string    `json:"category"`
	Tag           string    `json:"tag,omitempty"`
	Stock         int       `json:"stock"`
	SellerID      string    `json:"seller_id"`
	SellerName    string    `json:"seller_name,omitempty"`
	Ratings       []Rating  `json:"ratings"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Rating is one customer's score for a product. A customer has at most one
// rating per product.
type Rating struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`
	Score  float64   `json:"score"`
	Review string    `json:"review,omitempty"`
	Date   time.Time `json:"date"`
}

// ValidCategories returns the set of accepted product categories.
func ValidCategories() []string {
	return []string{
		CategoryArt, CategoryClothing, CategoryCeramics,
		CategoryJewellery, CategoryWooden, CategoryClay, CategoryDecor,
	}
}

// NormalizeCategory folds a category to its stored lowercase form. Input is
// case-insensitive; the canonical value is always lowercase.
func NormalizeCategory(category string) string {
	return strings.ToLower(category)
}

// IsValidCategory checks whether the given string is an accepted category,
// ignoring case.
func IsValidCategory(category string) bool {
	category = NormalizeCategory(category)
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// ValidTags returns the set of accepted merchandising tags.
func ValidTags() []string {
	return []string{TagNew, TagBestseller, TagTrending, TagLimited}
}

// IsValidTag checks whether the given string is an accepted tag. The empty
// string is valid and clears the tag.
func IsValidTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, t := range ValidTags() {
		if t == tag {
			return true
		}
	}
	return false
}

// UpsertRating records a customer's score. If the customer already rated this
// product their score is replaced in place; the stored review text is only
// overwritten when the new review is non-empty. The rating date is always
// refreshed. The average is recalculated either way.
func (p *Product) UpsertRating(userID, name string, score float64, review string, now time.Time) {
	for i := range p.Ratings {
		if p.Ratings[i].UserID == userID {
			p.Ratings[i].Score = score
			if review != "" {
				p.Ratings[i].Review = review
			}
			p.Ratings[i].Date = now
			p.RecalculateAverageRating()
			return
		}
	}

	p.Ratings = append(p.Ratings, Rating{
		UserID: userID,
		Name:   name,
		Score:  score,
		Review: review,
		Date:   now,
	})
	p.RecalculateAverageRating()
}

// RecalculateAverageRating sets AverageRating to the arithmetic mean of all
// rating scores, or 0 when the product has no ratings. The full float
// precision is kept; rounding is a presentation concern.
func (p *Product) RecalculateAverageRating() {
	if len(p.Ratings) == 0 {
		p.AverageRating = 0
		return
	}
	var sum float64
	for _, r := range p.Ratings {
		sum += r.Score
	}
	p.AverageRating = sum / float64(len(p.Ratings))
}

// RatingByUser returns the rating left by the given user, if any.
func (p *Product) RatingByUser(userID string) (Rating, bool) {
	for _, r := range p.Ratings {
		if r.UserID == userID {
			return r, true
		}
	}
	return Rating{}, false
}
