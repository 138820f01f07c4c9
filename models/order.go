package models

import "time"

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderApproved       OrderStatus = "approved"
	OrderRejected       OrderStatus = "rejected"
	OrderProcessing     OrderStatus = "processing"
	OrderOutForDelivery OrderStatus = "out-for-delivery"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
)

// allowedTransitions is the order lifecycle: a linear happy path with early
// exits to rejected (seller declines) and cancelled (before delivery starts).
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderApproved, OrderRejected, OrderCancelled},
	OrderApproved:       {OrderProcessing, OrderCancelled},
	OrderProcessing:     {OrderOutForDelivery, OrderCancelled},
	OrderOutForDelivery: {OrderCompleted},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderRejected, OrderProcessing,
		OrderOutForDelivery, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderRejected || s == OrderCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the lifecycle.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

const (
	PaymentCashOnDelivery = "cash-on-delivery"
	PaymentBkash          = "bkash"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// OrderItem is a line item with the unit price snapshotted at purchase time.
// Later product price changes never affect it.
type OrderItem struct {
	ProductID string          `bson:"product_id" json:"productId"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	Price     float64         `bson:"price" json:"price"`
	Product   *ProductSummary `bson:"-" json:"product,omitempty"`
}

type Order struct {
	OrderNumber     string      `bson:"order_number" json:"orderNumber"`
	ID              string      `bson:"_id" json:"id"`
	BuyerID         string      `bson:"buyer_id" json:"buyerId"`
	SellerID        string      `bson:"seller_id" json:"sellerId"`
	Items           []OrderItem `bson:"items" json:"items"`
	TotalAmount     float64     `bson:"total_amount" json:"totalAmount"`
	ShippingAddress string      `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string      `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus   string      `bson:"payment_status" json:"paymentStatus"`
	Status          OrderStatus `bson:"status" json:"status"`
	CreatedAt       time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `bson:"updated_at" json:"updatedAt"`

	Buyer  *PublicUser `bson:"-" json:"buyer,omitempty"`
	Seller *PublicUser `bson:"-" json:"seller,omitempty"`
	Review *Review     `bson:"-" json:"review,omitempty"`
}
