// Product repository encapsulates the data access logic (interactions with the DB) related to Products in Wishful.
// A product is stored as one JSON document holding its comments and reactions.

package product

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// Mutation applied to a product inside a watched transaction, a returned error aborts the write.
type Mutation func(p *entity.Product) error

type Repository interface {
	// AddProduct saves p and appends it to its wishlist.
	AddProduct(ctx context.Context, logger log.Logger, p entity.Product) error
	// GetProduct returns the product with id.
	GetProduct(ctx context.Context, logger log.Logger, id string) (entity.Product, error)
	// ListProducts returns the products of a wishlist, newest first.
	ListProducts(ctx context.Context, logger log.Logger, wishlistID string) ([]entity.Product, error)
	// UpdateProduct applies mutate on the stored product and commits it only if nobody wrote in between.
	UpdateProduct(ctx context.Context, logger log.Logger, id string, mutate Mutation) (entity.Product, error)
	// DeleteProduct removes the product with id from its wishlist.
	DeleteProduct(ctx context.Context, logger log.Logger, wishlistID string, id string) error
	// DeleteAllProducts removes every product of a wishlist.
	DeleteAllProducts(ctx context.Context, logger log.Logger, wishlistID string) error
}

// repository struct of product Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func productKey(id string) string {
	return "product:" + id
}

// Sorted by creation time in milliseconds.
func wishlistProductsKey(wishlistID string) string {
	return "wishlist-products:" + wishlistID
}

// Returns nil if the product got successfully added into the DB.
func (r repository) AddProduct(ctx context.Context, logger log.Logger, p entity.Product) error {
	doc, mrsherr := json.Marshal(p)
	if mrsherr != nil {
		logger.WithCtx(ctx).Error().Err(mrsherr).Msg("Couldn't marshal product in product.AddProduct")
		return errors.InternalServerError("")
	}
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, productKey(p.ID), doc, 0)
		pipe.ZAdd(ctx, wishlistProductsKey(p.WishlistID), &redis.Z{Score: float64(p.Created), Member: p.ID})
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in product.AddProduct")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the product if found in the DB.
func (r repository) GetProduct(ctx context.Context, logger log.Logger, id string) (entity.Product, error) {
	return r.get(ctx, logger, r.db.Client(), id)
}

// Satisfied by both the client and a watching transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Reads through c, which is either the client or a watching transaction.
func (r repository) get(ctx context.Context, logger log.Logger, c getter, id string) (entity.Product, error) {
	p := entity.Product{}
	doc, dberr := c.Get(ctx, productKey(id)).Bytes()
	if dberr == redis.Nil {
		return p, errors.NotFound("Product not found")
	} else if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Get() in product.GetProduct")
		return p, errors.InternalServerError("")
	}
	if mrsherr := json.Unmarshal(doc, &p); mrsherr != nil {
		logger.WithCtx(ctx).Error().Err(mrsherr).Str("ProductID", id).Msg("Corrupted product document")
		return p, errors.InternalServerError("")
	}
	return p, nil
}

// Returns the products of the wishlist ordered by creation time, newest first.
func (r repository) ListProducts(ctx context.Context, logger log.Logger, wishlistID string) ([]entity.Product, error) {
	ids, dberr := r.db.Client().ZRevRange(ctx, wishlistProductsKey(wishlistID), 0, -1).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.ZRevRange() in product.ListProducts")
		return nil, errors.InternalServerError("")
	}
	products := make([]entity.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	docs, dberr := r.db.Client().MGet(ctx, keys...).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.MGet() in product.ListProducts")
		return nil, errors.InternalServerError("")
	}
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			// Deleted after ZRevRange
			continue
		}
		p := entity.Product{}
		if mrsherr := json.Unmarshal([]byte(raw), &p); mrsherr != nil {
			logger.WithCtx(ctx).Error().Err(mrsherr).Str("ProductID", ids[i]).Msg("Corrupted product document")
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Returns the product as committed after mutate.
// Concurrent writers on the same product make the transaction retry, no update is lost.
func (r repository) UpdateProduct(ctx context.Context, logger log.Logger, id string, mutate Mutation) (entity.Product, error) {
	key := productKey(id)
	var updated entity.Product
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		p, err := r.get(ctx, logger, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(&p); err != nil {
			return err
		}
		doc, mrsherr := json.Marshal(p)
		if mrsherr != nil {
			return mrsherr
		}
		_, dberr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			return nil
		})
		if dberr == nil {
			updated = p
		}
		return dberr
	}, key)
	if txferr != nil {
		if err, ok := txferr.(errors.ErrorResponse); ok {
			return updated, err
		}
		logger.WithCtx(ctx).Error().Err(txferr).Str("ProductID", id).Msg("Error occured in product.UpdateProduct transaction")
		return updated, errors.InternalServerError("")
	}
	return updated, nil
}

// Returns 404 if there was no such product.
func (r repository) DeleteProduct(ctx context.Context, logger log.Logger, wishlistID string, id string) error {
	var deleted *redis.IntCmd
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, productKey(id))
		pipe.ZRem(ctx, wishlistProductsKey(wishlistID), id)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in product.DeleteProduct")
		return errors.InternalServerError("")
	}
	if deleted.Val() == 0 {
		return errors.NotFound("Product not found")
	}
	return nil
}

// Returns nil once the wishlist has no products left.
func (r repository) DeleteAllProducts(ctx context.Context, logger log.Logger, wishlistID string) error {
	ids, dberr := r.db.Client().ZRange(ctx, wishlistProductsKey(wishlistID), 0, -1).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.ZRange() in product.DeleteAllProducts")
		return errors.InternalServerError("")
	}
	keys := []string{wishlistProductsKey(wishlistID)}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	if dberr := r.db.Client().Del(ctx, keys...).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Del() in product.DeleteAllProducts")
		return errors.InternalServerError("")
	}
	return nil
}
