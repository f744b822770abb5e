package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"marketplace-backend/internal/domains/product/model"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productCollection = "products"

type productRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *mongo.Database) RepositoryInterface {
	return &productRepository{
		collection: db.Collection(productCollection),
	}
}

// EnsureIndexes creates the import upsert key: (merchant_id, import_sku)
// unique where import_sku exists. Sparse so manually created products
// without an import_sku don't collide with each other.
func (r *productRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "merchant_id", Value: 1}, {Key: "import_sku", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"import_sku": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "merchant_id", Value: 1}, {Key: "category_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

// BulkUpsert executes one unordered bulk write.
// Content fields go in $set so a re-import updates them; timestamps,
// counters and rating history go in $setOnInsert so re-importing a SKU
// never resets engagement data.
func (r *productRepository) BulkUpsert(ctx context.Context, products []*model.Product) (*BulkUpsertResult, error) {
	if len(products) == 0 {
		return &BulkUpsertResult{}, nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(products))

	for _, p := range products {
		filter := bson.M{
			"merchant_id": p.MerchantID,
			"import_sku":  p.ImportSKU,
		}

		set := bson.M{
			"name":        p.Name,
			"description": p.Description,
			"price":       p.Price,
			"final_price": p.FinalPrice,
			"currency":    p.Currency,
			"stock":       p.Stock,
			"category_id": p.CategoryID,
			"images":      p.Images,
			"is_active":   p.IsActive,
			"updated_at":  now,
		}
		if p.DiscountPrice != nil {
			set["discount_price"] = p.DiscountPrice
		} else {
			set["discount_price"] = nil
		}
		if len(p.Variants) > 0 {
			set["variants"] = p.Variants
		} else {
			set["variants"] = []model.Variant{}
		}

		setOnInsert := bson.M{
			"created_at": now,
			"view_count": 0,
			"sold_count": 0,
			"rating":     model.Rating{},
			"tags":       []string{},
		}

		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$set": set, "$setOnInsert": setOnInsert}).
			SetUpsert(true))
	}

	res, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))

	result := &BulkUpsertResult{}
	if res != nil {
		result.InsertedCount = int(res.UpsertedCount)
		result.UpdatedCount = int(res.ModifiedCount)
	}

	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			// Partial failure: surface each failed op by index, keep the
			// successful counts.
			for _, we := range bwe.WriteErrors {
				result.Errors = append(result.Errors, BulkUpsertError{
					Index:   we.Index,
					Message: we.Message,
				})
			}
			log.Warn().
				Int("failed_ops", len(bwe.WriteErrors)).
				Int("inserted", result.InsertedCount).
				Int("updated", result.UpdatedCount).
				Msg("Bulk upsert completed with partial failures")
			return result, nil
		}
		// Nothing was written; there is no partial result to salvage.
		return nil, fmt.Errorf("bulk upsert failed: %w", err)
	}

	return result, nil
}

func (r *productRepository) List(ctx context.Context, merchantID string, page, limit int) ([]*model.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{"merchant_id": merchantID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*model.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, total, nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrInvalidID
	}

	var product model.Product
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (r *productRepository) CountByImageKey(ctx context.Context, objectKey string) (int64, error) {
	pattern := regexp.QuoteMeta(objectKey) + "$"
	filter := bson.M{"$or": []bson.M{
		{"images": bson.M{"$regex": pattern}},
		{"variants.images": bson.M{"$regex": pattern}},
	}}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count image references: %w", err)
	}
	return count, nil
}

func (r *productRepository) GetByImportSKU(ctx context.Context, merchantID, importSKU string) (*model.Product, error) {
	var product model.Product
	err := r.collection.FindOne(ctx, bson.M{
		"merchant_id": merchantID,
		"import_sku":  importSKU,
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by import sku: %w", err)
	}

	return &product, nil
}
