package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/haatbazar/marketplace/models"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]models.Review, error)
}

type MongoReviewRepository struct {
	collection *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) *MongoReviewRepository {
	return &MongoReviewRepository{collection: db.Collection("reviews")}
}

// Create relies on the unique order_id index to reject a second review for
// the same order, closing the race between the service's existence check and
// the insert.
func (r *MongoReviewRepository) Create(ctx context.Context, review *models.Review) error {
	_, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (r *MongoReviewRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Review, error) {
	var review models.Review
	err := r.collection.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return &review, nil
}

// ListByProduct returns a product's reviews newest first, with the reviewer
// name resolved through a users lookup.
func (r *MongoReviewRepository) ListByProduct(ctx context.Context, productID string) ([]models.Review, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product_id": productID}}},
		{{Key: "$sort", Value: bson.M{"created_at": -1}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "buyer_id",
			"foreignField": "_id",
			"as":           "buyer",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"buyer_name": bson.M{"$arrayElemAt": bson.A{"$buyer.name", 0}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []struct {
		models.Review `bson:",inline"`
		BuyerNameDoc  string `bson:"buyer_name"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	reviews := make([]models.Review, 0, len(raw))
	for _, doc := range raw {
		review := doc.Review
		review.BuyerName = doc.BuyerNameDoc
		reviews = append(reviews, review)
	}
	return reviews, nil
}
