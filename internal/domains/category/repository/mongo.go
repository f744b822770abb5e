package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace-backend/internal/domains/category/model"
	"marketplace-backend/internal/shared/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const categoryCollection = "categories"

// RepositoryInterface defines category persistence operations
type RepositoryInterface interface {
	Create(ctx context.Context, category *model.Category) error
	List(ctx context.Context, merchantID string) ([]*model.Category, error)
	FindByName(ctx context.Context, merchantID, name string) (*model.Category, error)
	// NameIndex returns a lower-cased name -> id map for resolving
	// spreadsheet labels during commit.
	NameIndex(ctx context.Context, merchantID string) (map[string]string, error)
	EnsureIndexes(ctx context.Context) error
}

type categoryRepository struct {
	collection *mongo.Collection
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *mongo.Database) RepositoryInterface {
	return &categoryRepository{
		collection: db.Collection(categoryCollection),
	}
}

func (r *categoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "merchant_id", Value: 1}, {Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create category indexes: %w", err)
	}
	return nil
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	existing, err := r.FindByName(ctx, category.MerchantID, category.Name)
	if err != nil && err != model.ErrCategoryNotFound {
		return err
	}
	if existing != nil {
		return model.ErrCategoryExists
	}

	now := time.Now()
	category.Slug = utils.GenerateSlug(category.Name)
	category.CreatedAt = now
	category.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, category)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		category.ID = oid
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context, merchantID string) ([]*model.Category, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"merchant_id": merchantID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []*model.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

// FindByName matches case-insensitively via the slug, which is already a
// normalized form of the name.
func (r *categoryRepository) FindByName(ctx context.Context, merchantID, name string) (*model.Category, error) {
	var category model.Category
	err := r.collection.FindOne(ctx, bson.M{
		"merchant_id": merchantID,
		"slug":        utils.GenerateSlug(name),
	}).Decode(&category)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) NameIndex(ctx context.Context, merchantID string) (map[string]string, error) {
	categories, err := r.List(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]string, len(categories))
	for _, c := range categories {
		index[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID.Hex()
	}
	return index, nil
}
