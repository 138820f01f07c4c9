package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/haatbazar/marketplace/models"
)

// ErrDuplicateSlug distinguishes a slug collision from a name collision so
// the service can retry with a disambiguated slug.
var ErrDuplicateSlug = errors.New("duplicate slug")

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id string) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context, createdBy string, isActive *bool) ([]models.Category, error)
	Save(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

type MongoCategoryRepository struct {
	collection *mongo.Collection
}

func NewMongoCategoryRepository(db *mongo.Database) *MongoCategoryRepository {
	return &MongoCategoryRepository{collection: db.Collection("categories")}
}

func (r *MongoCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	_, err := r.collection.InsertOne(ctx, category)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "slug") {
				return ErrDuplicateSlug
			}
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *MongoCategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

// FindByName matches case-insensitively via the collection's name index
// collation.
func (r *MongoCategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	return r.findOne(ctx, bson.M{"name": name}, opts)
}

func (r *MongoCategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"slug": slug}, nil)
}

func (r *MongoCategoryRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.Category, error) {
	var category models.Category
	var err error
	if opts != nil {
		err = r.collection.FindOne(ctx, filter, opts).Decode(&category)
	} else {
		err = r.collection.FindOne(ctx, filter).Decode(&category)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func (r *MongoCategoryRepository) List(ctx context.Context, createdBy string, isActive *bool) ([]models.Category, error) {
	filter := bson.M{}
	if createdBy != "" {
		filter["created_by"] = createdBy
	}
	if isActive != nil {
		filter["is_active"] = *isActive
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (r *MongoCategoryRepository) Save(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": category.ID}, category)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "slug") {
				return ErrDuplicateSlug
			}
			return ErrDuplicate
		}
		return fmt.Errorf("failed to save category: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
