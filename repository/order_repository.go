package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/haatbazar/marketplace/models"
)

// OrderFilter scopes an order listing to a buyer or seller, optionally by
// status.
type OrderFilter struct {
	BuyerID  string
	SellerID string
	Status   models.OrderStatus
	Page     int
	Limit    int
}

// StatusStat is one bucket of the by-status order aggregation.
type StatusStat struct {
	Status      string  `bson:"_id" json:"status"`
	Count       int64   `bson:"count" json:"count"`
	TotalAmount float64 `bson:"total_amount" json:"totalAmount"`
}

// RevenueStats summarizes completed orders.
type RevenueStats struct {
	TotalRevenue      float64 `bson:"total_revenue" json:"totalRevenue"`
	AverageOrderValue float64 `bson:"average_order_value" json:"averageOrderValue"`
	OrderCount        int64   `bson:"order_count" json:"orderCount"`
}

// DailyStat is one day of order volume.
type DailyStat struct {
	Date    string  `bson:"_id" json:"date"`
	Count   int64   `bson:"count" json:"count"`
	Revenue float64 `bson:"revenue" json:"revenue"`
}

// TopProduct is a best-seller ranked by quantity sold.
type TopProduct struct {
	ProductID string  `bson:"_id" json:"productId"`
	Title     string  `bson:"title" json:"title"`
	Quantity  int64   `bson:"quantity" json:"quantity"`
	Revenue   float64 `bson:"revenue" json:"revenue"`
}

// TopSeller is a seller ranked by completed-order revenue.
type TopSeller struct {
	SellerID   string  `bson:"_id" json:"sellerId"`
	Name       string  `bson:"name" json:"name"`
	Email      string  `bson:"email" json:"email"`
	OrderCount int64   `bson:"order_count" json:"orderCount"`
	Revenue    float64 `bson:"revenue" json:"revenue"`
}

type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, paymentStatus string) error
	Count(ctx context.Context, sellerID string) (int64, error)
	StatusStats(ctx context.Context, sellerID string) ([]StatusStat, error)
	Revenue(ctx context.Context, sellerID string) (*RevenueStats, error)
	DailyOrders(ctx context.Context, sellerID string, since time.Time) ([]DailyStat, error)
	TopProducts(ctx context.Context, sellerID string, limit int) ([]TopProduct, error)
	TopSellers(ctx context.Context, limit int) ([]TopSeller, error)
}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection("orders")}
}

func (r *MongoOrderRepository) Insert(ctx context.Context, order *models.Order) error {
	_, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

func (r *MongoOrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.BuyerID != "" {
		filter["buyer_id"] = f.BuyerID
	}
	if f.SellerID != "" {
		filter["seller_id"] = f.SellerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	findOptions := options.Find().
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus writes the new status and, when paymentStatus is non-empty,
// the new payment status in a single update.
func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, paymentStatus string) error {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if paymentStatus != "" {
		set["payment_status"] = paymentStatus
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) Count(ctx context.Context, sellerID string) (int64, error) {
	filter := bson.M{}
	if sellerID != "" {
		filter["seller_id"] = sellerID
	}
	return r.collection.CountDocuments(ctx, filter)
}

func (r *MongoOrderRepository) StatusStats(ctx context.Context, sellerID string) ([]StatusStat, error) {
	match := bson.M{}
	if sellerID != "" {
		match["seller_id"] = sellerID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$status",
			"count":        bson.M{"$sum": 1},
			"total_amount": bson.M{"$sum": "$total_amount"},
		}}},
	}

	var stats []StatusStat
	if err := r.aggregate(ctx, pipeline, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *MongoOrderRepository) Revenue(ctx context.Context, sellerID string) (*RevenueStats, error) {
	match := bson.M{"status": models.OrderCompleted}
	if sellerID != "" {
		match["seller_id"] = sellerID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":                 nil,
			"total_revenue":       bson.M{"$sum": "$total_amount"},
			"average_order_value": bson.M{"$avg": "$total_amount"},
			"order_count":         bson.M{"$sum": 1},
		}}},
	}

	var results []RevenueStats
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &RevenueStats{}, nil
	}
	return &results[0], nil
}

func (r *MongoOrderRepository) DailyOrders(ctx context.Context, sellerID string, since time.Time) ([]DailyStat, error) {
	match := bson.M{"created_at": bson.M{"$gte": since}}
	if sellerID != "" {
		match["seller_id"] = sellerID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$total_amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	var stats []DailyStat
	if err := r.aggregate(ctx, pipeline, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *MongoOrderRepository) TopProducts(ctx context.Context, sellerID string, limit int) ([]TopProduct, error) {
	match := bson.M{}
	if sellerID != "" {
		match["seller_id"] = sellerID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$items.product_id",
			"quantity": bson.M{"$sum": "$items.quantity"},
			"revenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.quantity", "$items.price"}}},
		}}},
		{{Key: "$sort", Value: bson.M{"quantity": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: "$product"}},
		{{Key: "$project", Value: bson.M{
			"title":    "$product.title",
			"quantity": 1,
			"revenue":  1,
		}}},
	}

	var products []TopProduct
	if err := r.aggregate(ctx, pipeline, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *MongoOrderRepository) TopSellers(ctx context.Context, limit int) ([]TopSeller, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.OrderCompleted}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$seller_id",
			"order_count": bson.M{"$sum": 1},
			"revenue":     bson.M{"$sum": "$total_amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"revenue": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "seller",
		}}},
		{{Key: "$unwind", Value: "$seller"}},
		{{Key: "$project", Value: bson.M{
			"name":        "$seller.name",
			"email":       "$seller.email",
			"order_count": 1,
			"revenue":     1,
		}}},
	}

	var sellers []TopSeller
	if err := r.aggregate(ctx, pipeline, &sellers); err != nil {
		return nil, err
	}
	return sellers, nil
}

func (r *MongoOrderRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode aggregation: %w", err)
	}
	return nil
}
