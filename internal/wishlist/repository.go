// Wishlist repository encapsulates the data access logic (interactions with the DB) related to Wishlists in Wishful.

package wishlist

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// CreateWishlist saves w and indexes it under its owner.
	CreateWishlist(ctx context.Context, logger log.Logger, w entity.Wishlist) error
	// GetWishlist returns the wishlist with id along with its members.
	GetWishlist(ctx context.Context, logger log.Logger, id string) (entity.Wishlist, error)
	// ListWishlistIDs returns ids of wishlists username owns or joined plus every public one.
	ListWishlistIDs(ctx context.Context, logger log.Logger, username string) ([]string, error)
	// UpdateWishlist overwrites the mutable fields of w.
	UpdateWishlist(ctx context.Context, logger log.Logger, w entity.Wishlist) error
	// DeleteWishlist removes w with its members and index entries.
	DeleteWishlist(ctx context.Context, logger log.Logger, w entity.Wishlist) error
	// AddMember adds username into the members of wishlist id, adding twice is a no-op.
	AddMember(ctx context.Context, logger log.Logger, id string, username string, joinedAt int64) error
}

// repository struct of wishlist Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Keys of the wishlist model.
func wishlistKey(id string) string {
	return "wishlist:" + id
}

func membersKey(id string) string {
	return "wishlist-members:" + id
}

func userIndexKey(username string) string {
	return "user-wishlists:" + username
}

const publicIndexKey = "wishlists:public"

// Field-value pairs of w as stored in its hash.
func fieldsOf(w entity.Wishlist) []interface{} {
	return []interface{}{
		"id", w.ID,
		"name", w.Name,
		"description", w.Description,
		"owner", w.Owner,
		"is_public", w.IsPublic,
		"created_at", w.Created,
		"updated_at", w.Updated,
	}
}

// Returns nil if wishlist got successfully added into the DB.
func (r repository) CreateWishlist(ctx context.Context, logger log.Logger, w entity.Wishlist) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, wishlistKey(w.ID), fieldsOf(w)...)
		pipe.SAdd(ctx, userIndexKey(w.Owner), w.ID)
		if w.IsPublic {
			pipe.SAdd(ctx, publicIndexKey, w.ID)
		}
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in wishlist.CreateWishlist")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the wishlist data object if found in the DB.
func (r repository) GetWishlist(ctx context.Context, logger log.Logger, id string) (entity.Wishlist, error) {
	w := entity.Wishlist{}
	var (
		fields  *redis.StringStringMapCmd
		members *redis.ZSliceCmd
	)
	_, dberr := r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, wishlistKey(id))
		members = pipe.ZRangeWithScores(ctx, membersKey(id), 0, -1)
		return nil
	})
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in wishlist.GetWishlist")
		return w, errors.InternalServerError("")
	}
	if len(fields.Val()) == 0 {
		// Wishlist not available
		return w, errors.NotFound("Wishlist not found")
	}
	if dberr := fields.Scan(&w); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Scan() in wishlist.GetWishlist")
		return w, errors.InternalServerError("")
	}
	w.Members = make([]entity.Member, 0, len(members.Val()))
	for _, z := range members.Val() {
		username, _ := z.Member.(string)
		w.Members = append(w.Members, entity.Member{Username: username, JoinedAt: int64(z.Score)})
	}
	return w, nil
}

// Returns the union of the user's own index and the public index.
func (r repository) ListWishlistIDs(ctx context.Context, logger log.Logger, username string) ([]string, error) {
	ids, dberr := r.db.Client().SUnion(ctx, userIndexKey(username), publicIndexKey).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SUnion() in wishlist.ListWishlistIDs")
		return nil, errors.InternalServerError("")
	}
	return ids, nil
}

// Returns nil if the wishlist fields got updated, 404 if it vanished meanwhile.
func (r repository) UpdateWishlist(ctx context.Context, logger log.Logger, w entity.Wishlist) error {
	key := wishlistKey(w.ID)
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		available, dberr := tx.Exists(ctx, key).Result()
		if dberr != nil {
			return dberr
		} else if available == 0 {
			return errors.NotFound("Wishlist not found")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "name", w.Name, "description", w.Description, "is_public", w.IsPublic, "updated_at", w.Updated)
			if w.IsPublic {
				pipe.SAdd(ctx, publicIndexKey, w.ID)
			} else {
				pipe.SRem(ctx, publicIndexKey, w.ID)
			}
			return nil
		})
		return dberr
	}, key)
	if txferr != nil {
		if err, ok := txferr.(errors.ErrorResponse); ok {
			return err
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in wishlist.UpdateWishlist transaction")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns nil once the wishlist and every index entry pointing at it are gone.
func (r repository) DeleteWishlist(ctx context.Context, logger log.Logger, w entity.Wishlist) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, wishlistKey(w.ID), membersKey(w.ID))
		pipe.SRem(ctx, userIndexKey(w.Owner), w.ID)
		for _, m := range w.Members {
			pipe.SRem(ctx, userIndexKey(m.Username), w.ID)
		}
		pipe.SRem(ctx, publicIndexKey, w.ID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in wishlist.DeleteWishlist")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns nil once username is a member of wishlist id.
func (r repository) AddMember(ctx context.Context, logger log.Logger, id string, username string, joinedAt int64) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// NX keeps the original join time of existing members
		pipe.ZAddNX(ctx, membersKey(id), &redis.Z{Score: float64(joinedAt), Member: username})
		pipe.SAdd(ctx, userIndexKey(username), id)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in wishlist.AddMember")
		return errors.InternalServerError("")
	}
	return nil
}
