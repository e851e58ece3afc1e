// Access rules of wishlists, shared by every package acting on a wishlist's content.

package wishlist

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"context"
)

// Guard loads a wishlist and checks what a user may do with it.
// Every method returns a 404 ErrorResponse for unknown wishlists and a 403 one when access is denied.
type Guard struct {
	repo   Repository
	logger log.Logger
}

func NewGuard(repo Repository, logger log.Logger) Guard {
	return Guard{repo: repo, logger: logger}
}

// Viewable allows owners, members and anyone when the wishlist is public.
func (g Guard) Viewable(ctx context.Context, username, wishlistID string) (entity.Wishlist, error) {
	return g.check(ctx, username, wishlistID, entity.Wishlist.CanView, "You don't have access to this wishlist")
}

// Editable allows owners and members.
func (g Guard) Editable(ctx context.Context, username, wishlistID string) (entity.Wishlist, error) {
	return g.check(ctx, username, wishlistID, entity.Wishlist.CanEdit, "Only the owner and members can modify this wishlist")
}

// Owned allows the owner only.
func (g Guard) Owned(ctx context.Context, username, wishlistID string) (entity.Wishlist, error) {
	return g.check(ctx, username, wishlistID, entity.Wishlist.IsOwner, "Only the owner can do this")
}

func (g Guard) check(ctx context.Context, username, wishlistID string, allowed func(entity.Wishlist, string) bool, denied string) (entity.Wishlist, error) {
	w, err := g.repo.GetWishlist(ctx, g.logger, wishlistID)
	if err != nil {
		return w, err
	}
	if !allowed(w, username) {
		return w, errors.Forbidden(denied)
	}
	return w, nil
}
