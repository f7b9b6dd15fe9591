package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// CreateCart inserts the first version of a user's cart. Losing the race
// against another insert for the same user trips the unique user_id index.
func (m *mongoCartRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	cart.Version = 1
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	res, err := m.collection.InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		cart.ID = oid.Hex()
	}
	return nil
}

func (m *mongoCartRepository) SaveItems(
	ctx context.Context,
	userID string,
	items []domain.CartItem,
	expectedVersion int64) (*domain.Cart, error) {

	if items == nil {
		items = []domain.CartItem{}
	}

	filter := bson.M{"user_id": userID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"items": items, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var cart domain.Cart
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to save cart items: %w", err)
	}

	return &cart, nil
}

// ReplaceItems overwrites the item sequence in a single upsert. The returned
// flag is true when the cart did not exist before.
func (m *mongoCartRepository) ReplaceItems(
	ctx context.Context,
	userID string,
	items []domain.CartItem) (*domain.Cart, bool, error) {

	if items == nil {
		items = []domain.CartItem{}
	}

	now := time.Now().UTC()
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set":         bson.M{"items": items, "updated_at": now},
		"$inc":         bson.M{"version": 1},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart domain.Cart
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, false, domain.ErrVersionConflict
		}
		return nil, false, fmt.Errorf("failed to replace cart items: %w", err)
	}

	// $inc on a fresh document starts the version at 1
	return &cart, cart.Version == 1, nil
}
