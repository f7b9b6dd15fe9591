package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Category    primitive.ObjectID `bson:"category"`
	Stock       int                `bson:"stock"`
	Image       string             `bson:"image,omitempty"`
	Brand       string             `bson:"brand,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`

	// filled by the categories $lookup
	CategoryDoc *domain.Category `bson:"category_doc,omitempty"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		CategoryID:  d.Category.Hex(),
		Category:    d.CategoryDoc,
		Stock:       d.Stock,
		Image:       d.Image,
		Brand:       d.Brand,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (m *mongoProductRepository) Create(ctx context.Context, p domain.Product) (string, error) {
	category, err := primitive.ObjectIDFromHex(p.CategoryID)
	if err != nil {
		return "", fmt.Errorf("invalid category id %q: %w", p.CategoryID, err)
	}

	now := time.Now().UTC()
	doc := productDocument{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    category,
		Stock:       p.Stock,
		Image:       p.Image,
		Brand:       p.Brand,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrProductNotFound
	}

	products, err := m.aggregate(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return &products[0], nil
}

func (m *mongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	match := bson.M{}
	if filter.NameContains != "" {
		match["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.NameContains), Options: "i"}
	}
	if filter.CategoryID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.CategoryID)
		if err != nil {
			// no product can reference a malformed category id
			return []domain.Product{}, nil
		}
		match["category"] = oid
	}

	return m.aggregate(ctx, match)
}

func (m *mongoProductRepository) Update(ctx context.Context, id string, p domain.Product) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrProductNotFound
	}
	category, err := primitive.ObjectIDFromHex(p.CategoryID)
	if err != nil {
		return fmt.Errorf("invalid category id %q: %w", p.CategoryID, err)
	}

	update := bson.M{
		"$set": bson.M{
			"name":        p.Name,
			"description": p.Description,
			"price":       p.Price,
			"category":    category,
			"stock":       p.Stock,
			"image":       p.Image,
			"brand":       p.Brand,
			"updated_at":  time.Now().UTC(),
		},
	}

	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (m *mongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrProductNotFound
	}

	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// FindByIDs returns the products that still exist among ids. Malformed ids
// are skipped.
func (m *mongoProductRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []domain.Product{}, nil
	}

	return m.aggregate(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (m *mongoProductRepository) aggregate(ctx context.Context, match bson.M) ([]domain.Product, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "categories"},
			{Key: "localField", Value: "category"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "category_doc"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$category_doc"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []domain.Product{}
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products = append(products, doc.toDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("product cursor error: %w", err)
	}

	return products, nil
}
