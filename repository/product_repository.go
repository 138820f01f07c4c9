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

// ProductFilter describes a paginated product listing query. Zero values
// mean "not filtered".
type ProductFilter struct {
	SellerID      string
	Category      string
	Tag           string
	Search        string
	MinPrice      *float64
	MaxPrice      *float64
	IsActive      *bool
	HotCollection *bool
	Page          int
	Limit         int
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Find(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, quantity int) error
	IncrementStock(ctx context.Context, id string, quantity int) error
	CountByCategory(ctx context.Context, categoryName string) (int64, error)
	CountBySeller(ctx context.Context, sellerID string, isActive *bool) (int64, error)
}

type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection("products")}
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	_, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (r *MongoProductRepository) Find(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := buildProductFilter(f)

	findOptions := options.Find().
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, total, nil
}

func buildProductFilter(f ProductFilter) bson.M {
	filter := bson.M{}
	if f.SellerID != "" {
		filter["seller_id"] = f.SellerID
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Tag != "" {
		filter["tags"] = bson.M{"$in": []string{f.Tag}}
	}
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	if f.HotCollection != nil {
		filter["is_hot_collection"] = *f.HotCollection
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	return filter
}

func (r *MongoProductRepository) Save(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock is the atomic conditional decrement: it subtracts quantity
// only if the current stock covers it. Concurrent orders racing on the same
// product serialize on this single update, so stock can never go negative.
func (r *MongoProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	filter := bson.M{"_id": id, "stock": bson.M{"$gte": quantity}}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if res.ModifiedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// IncrementStock restores stock released by a failed order creation.
func (r *MongoProductRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	update := bson.M{
		"$inc": bson.M{"stock": quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) CountByCategory(ctx context.Context, categoryName string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"category": categoryName})
}

func (r *MongoProductRepository) CountBySeller(ctx context.Context, sellerID string, isActive *bool) (int64, error) {
	filter := bson.M{"seller_id": sellerID}
	if isActive != nil {
		filter["is_active"] = *isActive
	}
	return r.collection.CountDocuments(ctx, filter)
}
