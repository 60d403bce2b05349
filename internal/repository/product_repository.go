package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type productDocument struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty"`
	Name           string                `bson:"name"`
	SellerID       string                `bson:"seller_id"`
	Price          float64               `bson:"price"`
	Currency       string                `bson:"currency"`
	AccessDuration domain.AccessDuration `bson:"access_duration"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		SellerID:       d.SellerID,
		Price:          decimal.NewFromFloat(d.Price).Round(2),
		Currency:       d.Currency,
		AccessDuration: d.AccessDuration,
	}
}

type MongoDBProductRepositoryImpl struct {
	db *mongo.Database
}

func CreateMongoDBProductRepository(db *mongo.Database) ProductRepository {
	return &MongoDBProductRepositoryImpl{db: db}
}

func (r *MongoDBProductRepositoryImpl) GetProductByID(ctx context.Context, id string) (data domain.Product, err error) {
	productID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return data, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
	}

	var doc productDocument
	err = r.db.Collection("products").FindOne(ctx, bson.D{{Key: "_id", Value: productID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return data, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProductByID").Msg("")
		return data, err
	}

	return doc.toDomain(), nil
}

// CachedProductRepository keeps recently read products for ttl. Misses and
// errors are never cached.
type CachedProductRepository struct {
	next  ProductRepository
	cache *expirable.LRU[string, domain.Product]
}

func CreateCachedProductRepository(next ProductRepository, size int, ttl time.Duration) *CachedProductRepository {
	if size <= 0 {
		size = 1024
	}

	return &CachedProductRepository{
		next:  next,
		cache: expirable.NewLRU[string, domain.Product](size, nil, ttl),
	}
}

func (r *CachedProductRepository) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	if product, ok := r.cache.Get(id); ok {
		return product, nil
	}

	product, err := r.next.GetProductByID(ctx, id)
	if err != nil {
		return product, err
	}

	r.cache.Add(id, product)
	return product, nil
}

func (r *CachedProductRepository) Purge() {
	r.cache.Purge()
}
