package models

import "time"

// Review is the single rating a buyer may leave on a completed order. It is
// bound to the order's first line item product.
type Review struct {
	ID        string    `bson:"_id" json:"id"`
	ProductID string    `bson:"product_id" json:"productId"`
	BuyerID   string    `bson:"buyer_id" json:"buyerId"`
	OrderID   string    `bson:"order_id" json:"orderId"`
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	BuyerName string    `bson:"-" json:"buyerName,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
