// Invitation repository encapsulates the data access logic (interactions with the DB) related to wishlist Invitations in Wishful.

package invitation

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"sort"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// CreateInvitation saves inv, refusing a second pending invitation of the same user into the same wishlist.
	CreateInvitation(ctx context.Context, logger log.Logger, inv entity.Invitation) error
	// GetInvitation returns the invitation with id.
	GetInvitation(ctx context.Context, logger log.Logger, id string) (entity.Invitation, error)
	// ListPending returns the pending invitations received by username, newest first.
	ListPending(ctx context.Context, logger log.Logger, username string) ([]entity.Invitation, error)
	// Resolve moves a pending invitation into status, a resolved invitation can't change anymore.
	Resolve(ctx context.Context, logger log.Logger, inv entity.Invitation, status string) error
}

// repository struct of invitation Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of invitation repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func invitationKey(id string) string {
	return "invitation:" + id
}

// Invitations received by a user.
func userInvitationsKey(username string) string {
	return "user-invitations:" + username
}

// Pending invitations of a wishlist, invitee -> invitation id.
func pendingKey(wishlistID string) string {
	return "wishlist-invitations:" + wishlistID
}

// Returns a 409 ErrorResponse if the user already has a pending invitation into the wishlist.
func (r repository) CreateInvitation(ctx context.Context, logger log.Logger, inv entity.Invitation) error {
	pending := pendingKey(inv.WishlistID)
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		exists, dberr := tx.HExists(ctx, pending, inv.To).Result()
		if dberr != nil {
			return dberr
		} else if exists {
			return errors.Conflict("User already has a pending invitation to this wishlist")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, invitationKey(inv.ID),
				"id", inv.ID,
				"wishlist_id", inv.WishlistID,
				"wishlist_name", inv.WishlistName,
				"from", inv.From,
				"to", inv.To,
				"status", inv.Status,
				"created_at", inv.Created,
			)
			pipe.HSet(ctx, pending, inv.To, inv.ID)
			pipe.SAdd(ctx, userInvitationsKey(inv.To), inv.ID)
			return nil
		})
		return dberr
	}, pending)
	if txferr != nil {
		if err, ok := txferr.(errors.ErrorResponse); ok {
			return err
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in invitation.CreateInvitation transaction")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the invitation if found in the DB.
func (r repository) GetInvitation(ctx context.Context, logger log.Logger, id string) (entity.Invitation, error) {
	inv := entity.Invitation{}
	fields := r.db.Client().HGetAll(ctx, invitationKey(id))
	if dberr := fields.Err(); dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in invitation.GetInvitation")
		return inv, errors.InternalServerError("")
	}
	if len(fields.Val()) == 0 {
		return inv, errors.NotFound("Invitation not found")
	}
	if dberr := fields.Scan(&inv); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Scan() in invitation.GetInvitation")
		return inv, errors.InternalServerError("")
	}
	return inv, nil
}

// Returns pending invitations of username sorted by creation time, newest first.
func (r repository) ListPending(ctx context.Context, logger log.Logger, username string) ([]entity.Invitation, error) {
	ids, dberr := r.db.Client().SMembers(ctx, userInvitationsKey(username)).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in invitation.ListPending")
		return nil, errors.InternalServerError("")
	}
	invitations := make([]entity.Invitation, 0, len(ids))
	for _, id := range ids {
		inv, err := r.GetInvitation(ctx, logger, id)
		if errors.Is(err, 404) {
			continue
		} else if err != nil {
			return nil, err
		}
		if inv.Status == entity.InvitationPending {
			invitations = append(invitations, inv)
		}
	}
	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].Created > invitations[j].Created
	})
	return invitations, nil
}

// Returns a 400 ErrorResponse if the invitation got resolved meanwhile.
func (r repository) Resolve(ctx context.Context, logger log.Logger, inv entity.Invitation, status string) error {
	key := invitationKey(inv.ID)
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		current, dberr := tx.HGet(ctx, key, "status").Result()
		if dberr == redis.Nil {
			return errors.NotFound("Invitation not found")
		} else if dberr != nil {
			return dberr
		} else if current != entity.InvitationPending {
			return errors.BadRequest("Invitation was already " + current)
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "status", status)
			pipe.HDel(ctx, pendingKey(inv.WishlistID), inv.To)
			pipe.SRem(ctx, userInvitationsKey(inv.To), inv.ID)
			return nil
		})
		return dberr
	}, key)
	if txferr != nil {
		if err, ok := txferr.(errors.ErrorResponse); ok {
			return err
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in invitation.Resolve transaction")
		return errors.InternalServerError("")
	}
	return nil
}
