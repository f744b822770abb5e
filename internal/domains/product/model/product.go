package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ============ ENTITIES ============

// Rating is engagement history; set on first insert only and never
// touched by re-imports.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Variant is one buyable configuration of a variant product.
type Variant struct {
	SKU           string            `bson:"sku" json:"sku"`
	Attributes    map[string]string `bson:"attributes,omitempty" json:"attributes,omitempty"`
	Price         float64           `bson:"price" json:"price"`
	DiscountPrice *float64          `bson:"discount_price,omitempty" json:"discount_price,omitempty"`
	FinalPrice    float64           `bson:"final_price" json:"final_price"`
	Stock         int               `bson:"stock" json:"stock"`
	Images        []string          `bson:"images,omitempty" json:"images,omitempty"`
	IsActive      bool              `bson:"is_active" json:"is_active"`
}

// Product - Domain Entity (from database)
// Simple products carry price/stock directly; variant products carry a
// Variants list and their FinalPrice is the minimum across variants.
// ImportSKU is the natural key for import upserts, unique per merchant
// when present (sparse - products created outside the import path have
// none).
type Product struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MerchantID string             `bson:"merchant_id" json:"merchant_id"`
	ImportSKU  string             `bson:"import_sku,omitempty" json:"import_sku,omitempty"`

	Name        string `bson:"name" json:"name"`
	Description string `bson:"description" json:"description"`

	// Pricing
	Price         float64  `bson:"price" json:"price"`
	DiscountPrice *float64 `bson:"discount_price,omitempty" json:"discount_price,omitempty"`
	FinalPrice    float64  `bson:"final_price" json:"final_price"`
	Currency      string   `bson:"currency" json:"currency"`

	Stock      int    `bson:"stock" json:"stock"`
	CategoryID string `bson:"category_id" json:"category_id"`

	// Images is never empty for imported products.
	Images   []string  `bson:"images" json:"images"`
	Variants []Variant `bson:"variants,omitempty" json:"variants,omitempty"`

	IsActive bool `bson:"is_active" json:"is_active"`

	// Status & Metrics (insert-only)
	ViewCount int      `bson:"view_count" json:"view_count"`
	SoldCount int      `bson:"sold_count" json:"sold_count"`
	Rating    Rating   `bson:"rating" json:"rating"`
	Tags      []string `bson:"tags" json:"tags"`

	// Timestamps
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
