// Service layer of the internal package wishlist.

package wishlist

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/notify"
	"Wishful/pkg/log"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// ProductStore is the part of the product storage the wishlist views are built from.
type ProductStore interface {
	// ListProducts returns the products of a wishlist, newest first.
	ListProducts(ctx context.Context, logger log.Logger, wishlistID string) ([]entity.Product, error)
	// DeleteAllProducts removes every product of a wishlist.
	DeleteAllProducts(ctx context.Context, logger log.Logger, wishlistID string) error
}

// Service layer of internal package wishlist which encapsulates wishlist logic of Wishful.
type Service interface {
	// Wishlists visible to the current user, newest first
	listwishlists(context.Context) ([]entity.Wishlist, error)
	// Creates a wishlist owned by the current user
	createwishlist(context.Context, entity.WishlistInput) (entity.Wishlist, error)
	// Wishlist with its fully populated products
	getwishlist(context.Context, string) (entity.WishlistDetail, error)
	// Owner only
	updatewishlist(context.Context, string, entity.WishlistUpdate) (entity.Wishlist, error)
	// Owner only, products go with it
	deletewishlist(context.Context, string) error
	// Distinct product categories
	categories(context.Context, string) ([]string, error)
	// Products matching the filter
	filterproducts(context.Context, string, entity.ProductFilter) ([]entity.ProductView, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	wishlistRepo Repository
	products     ProductStore
	guard        Guard
	projector    *notify.Projector
	logger       log.Logger
}

func NewService(wishlistRepo Repository, products ProductStore, projector *notify.Projector, logger log.Logger) Service {
	return service{wishlistRepo, products, NewGuard(wishlistRepo, logger), projector, logger}
}

// Helper fetching the username AuthMiddleware put in the context.
func currentUser(ctx context.Context, logger log.Logger) (string, error) {
	username, ok := ctx.Value("Username").(string)
	if !ok {
		// username missing from context
		logger.WithCtx(ctx).Error().Msg("Type assertion error while reading Username from context")
		return "", errors.InternalServerError("")
	}
	return username, nil
}

func (s service) listwishlists(ctx context.Context) ([]entity.Wishlist, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	ids, dberr := s.wishlistRepo.ListWishlistIDs(ctx, s.logger, username)
	if dberr != nil {
		return nil, dberr
	}
	wishlists := make([]entity.Wishlist, 0, len(ids))
	for _, id := range ids {
		w, dberr := s.wishlistRepo.GetWishlist(ctx, s.logger, id)
		if errors.Is(dberr, 404) {
			// Deleted while we were listing
			continue
		} else if dberr != nil {
			return nil, dberr
		}
		wishlists = append(wishlists, w)
	}
	sort.SliceStable(wishlists, func(i, j int) bool {
		if wishlists[i].Created == wishlists[j].Created {
			return wishlists[i].ID < wishlists[j].ID
		}
		return wishlists[i].Created > wishlists[j].Created
	})
	return wishlists, nil
}

func (s service) createwishlist(ctx context.Context, input entity.WishlistInput) (entity.Wishlist, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.Wishlist{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return entity.Wishlist{}, validationResponse(valerr)
	}
	now := time.Now().UnixMilli()
	w := entity.Wishlist{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Owner:       username,
		IsPublic:    input.IsPublic,
		Created:     now,
		Updated:     now,
		Members:     []entity.Member{},
	}
	if dberr := s.wishlistRepo.CreateWishlist(ctx, s.logger, w); dberr != nil {
		return entity.Wishlist{}, dberr
	}
	return w, nil
}

func (s service) getwishlist(ctx context.Context, id string) (entity.WishlistDetail, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.WishlistDetail{}, err
	}
	w, err := s.guard.Viewable(ctx, username, id)
	if err != nil {
		return entity.WishlistDetail{}, err
	}
	products, dberr := s.products.ListProducts(ctx, s.logger, id)
	if dberr != nil {
		return entity.WishlistDetail{}, dberr
	}
	return entity.WishlistDetail{Wishlist: w, Products: s.projector.ProjectAll(ctx, products)}, nil
}

func (s service) updatewishlist(ctx context.Context, id string, update entity.WishlistUpdate) (entity.Wishlist, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.Wishlist{}, err
	}
	w, err := s.guard.Owned(ctx, username, id)
	if err != nil {
		return entity.Wishlist{}, err
	}
	// Absent fields keep their value, present ones go through the create rules
	if update.Name != nil {
		w.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		w.Description = strings.TrimSpace(*update.Description)
	}
	if update.IsPublic != nil {
		w.IsPublic = *update.IsPublic
	}
	input := entity.WishlistInput{Name: w.Name, Description: w.Description, IsPublic: w.IsPublic}
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return entity.Wishlist{}, validationResponse(valerr)
	}
	w.Updated = time.Now().UnixMilli()
	if dberr := s.wishlistRepo.UpdateWishlist(ctx, s.logger, w); dberr != nil {
		return entity.Wishlist{}, dberr
	}
	return w, nil
}

func (s service) deletewishlist(ctx context.Context, id string) error {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return err
	}
	w, err := s.guard.Owned(ctx, username, id)
	if err != nil {
		return err
	}
	if dberr := s.products.DeleteAllProducts(ctx, s.logger, id); dberr != nil {
		return dberr
	}
	return s.wishlistRepo.DeleteWishlist(ctx, s.logger, w)
}

func (s service) categories(ctx context.Context, id string) ([]string, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Viewable(ctx, username, id); err != nil {
		return nil, err
	}
	products, dberr := s.products.ListProducts(ctx, s.logger, id)
	if dberr != nil {
		return nil, dberr
	}
	return Categories(products), nil
}

func (s service) filterproducts(ctx context.Context, id string, filter entity.ProductFilter) ([]entity.ProductView, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Viewable(ctx, username, id); err != nil {
		return nil, err
	}
	products, dberr := s.products.ListProducts(ctx, s.logger, id)
	if dberr != nil {
		return nil, dberr
	}
	return s.projector.ProjectAll(ctx, Filter(products, filter)), nil
}

// Converts a govalidator failure into the standard validation response.
func validationResponse(valerr error) error {
	if errs, ok := valerr.(govalidator.Errors); ok {
		return errors.GenerateValidationErrorResponse(errs.Errors())
	}
	return errors.GenerateValidationErrorResponse([]error{valerr})
}
