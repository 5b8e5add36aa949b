package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Product images are JPEG only, capped at 5 MiB.
const (
	MaxImageSize     = 5 << 20
	ImageContentType = "image/jpeg"
)

// IsAllowedImageType checks whether the given content type is accepted for
// product images. The legacy "image/jpg" spelling some clients send is
// treated as equivalent to "image/jpeg".
func IsAllowedImageType(contentType string) bool {
	return contentType == ImageContentType || contentType == "image/jpg"
}

// NewImageKey generates a unique storage key for a product image.
func NewImageKey(now time.Time) string {
	return fmt.Sprintf("product-%d-%d.jpg", now.UnixMilli(), rand.Int64N(1_000_000_000)) // #nosec G404 -- uniqueness, not secrecy
}
