package models

import "time"

type Product struct {
	ID              string     `bson:"_id" json:"id"`
	Title           string     `bson:"title" json:"title"`
	Description     string     `bson:"description" json:"description"`
	Category        string     `bson:"category" json:"category"`
	Price           float64    `bson:"price" json:"price"`
	DiscountPrice   *float64   `bson:"discount_price,omitempty" json:"discountPrice,omitempty"`
	DiscountEndDate *time.Time `bson:"discount_end_date,omitempty" json:"discountEndDate,omitempty"`
	Images          []string   `bson:"images" json:"images"`
	Video           string     `bson:"video,omitempty" json:"video,omitempty"`
	SellerID        string     `bson:"seller_id" json:"sellerId"`
	Stock           int        `bson:"stock" json:"stock"`
	IsActive        bool       `bson:"is_active" json:"isActive"`
	Features        []string   `bson:"features" json:"features"`
	IsHotCollection bool       `bson:"is_hot_collection" json:"isHotCollection"`
	Tags            []string   `bson:"tags" json:"tags"`
	Brand           string     `bson:"brand,omitempty" json:"brand,omitempty"`
	Weight          *float64   `bson:"weight,omitempty" json:"weight,omitempty"`
	Dimensions      string     `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Warranty        string     `bson:"warranty,omitempty" json:"warranty,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updatedAt"`
}

// EffectivePrice returns the price actually charged: the discount price when
// it is set, strictly below the base price and not past its end date.
func (p *Product) EffectivePrice(now time.Time) float64 {
	if p.DiscountPrice == nil || *p.DiscountPrice >= p.Price {
		return p.Price
	}
	if p.DiscountEndDate != nil && now.After(*p.DiscountEndDate) {
		return p.Price
	}
	return *p.DiscountPrice
}

// ProductSummary is the projection joined into order line items.
type ProductSummary struct {
	ID     string   `bson:"_id" json:"id"`
	Title  string   `bson:"title" json:"title"`
	Images []string `bson:"images" json:"images"`
	Price  float64  `bson:"price" json:"price"`
}

func (p *Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Title: p.Title, Images: p.Images, Price: p.Price}
}
