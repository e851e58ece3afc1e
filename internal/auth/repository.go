// Auth repository encapsulates the data access logic (interactions with the DB) related to Authentication in Wishful.

package auth

import (
	"Wishful/internal/errors"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// SetToken adds the user's token:AccessTokenUUID and token:RefreshTokenUUID pointing to the username in the DB.
	SetToken(context.Context, log.Logger, *JWTdata) error
	// TokenExists checks whether token:tokenUUID exists in the DB and belongs to username.
	TokenExists(ctx context.Context, logger log.Logger, tokenUUID string, username string) (bool, error)
	// DelToken removes token:tokenUUID from the DB.
	DelToken(ctx context.Context, logger log.Logger, tokenUUID string) error
}

// repository struct of auth Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of auth repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Returns nil if Token got successfully added into the DB else error.
func (r repository) SetToken(ctx context.Context, logger log.Logger, jwtData *JWTdata) error {
	now := time.Now()
	accTokenExp := time.Unix(jwtData.AccTokenExp, 0)
	refTokenExp := time.Unix(jwtData.RefTokenExp, 0)
	// Both tokens are set in a single round trip, they expire on their own
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, "token:"+jwtData.AccessTokenUUID, jwtData.Username, accTokenExp.Sub(now))
		pipe.Set(ctx, "token:"+jwtData.RefTokenUUID, jwtData.Username, refTokenExp.Sub(now))
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined in auth.SetToken")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns boolean if token:tokenUUID exists in the DB and belongs to username.
// tokenUUID can be both AccessToken or RefreshToken.
func (r repository) TokenExists(ctx context.Context, logger log.Logger, tokenUUID string, username string) (bool, error) {
	val, dberr := r.db.Client().Get(ctx, "token:"+tokenUUID).Result()
	if dberr == redis.Nil {
		// Key doesn't exist, maybe got expired
		return false, nil
	} else if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Get in auth.TokenExists")
		return false, errors.InternalServerError("")
	}
	return val == username, nil
}

// Returns a 404 ErrorResponse if token:tokenUUID wasn't in the DB.
func (r repository) DelToken(ctx context.Context, logger log.Logger, tokenUUID string) error {
	deleted, dberr := r.db.Client().Del(ctx, "token:"+tokenUUID).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Del in auth.DelToken")
		return errors.InternalServerError("")
	} else if deleted == 0 {
		return errors.NotFound("Token not available")
	}
	return nil
}
