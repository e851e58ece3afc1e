// Service layer of the internal package product.
// Every mutation commits first and notifies second, both while holding the wishlist's lock.

package product

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/notify"
	"Wishful/pkg/log"
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// Access decides who may mutate the content of a wishlist.
type Access interface {
	Editable(ctx context.Context, username, wishlistID string) (entity.Wishlist, error)
}

// Service layer of internal package product which encapsulates product, comment and reaction logic of Wishful.
// origin is the session id of the mutating client, it won't receive its own event.
type Service interface {
	addproduct(ctx context.Context, wishlistID string, input entity.ProductInput, origin string) (entity.ProductView, error)
	updateproduct(ctx context.Context, wishlistID, productID string, input entity.ProductInput, origin string) (entity.ProductView, error)
	deleteproduct(ctx context.Context, wishlistID, productID string, origin string) error
	addcomment(ctx context.Context, wishlistID, productID string, input entity.CommentInput, origin string) (entity.ProductView, error)
	deletecomment(ctx context.Context, wishlistID, productID, commentID string, origin string) (entity.ProductView, error)
	// Returns whether the reaction ended up added (true) or removed (false)
	togglereaction(ctx context.Context, wishlistID, productID string, input entity.ReactionInput, origin string) (entity.ProductView, bool, error)
	removereaction(ctx context.Context, wishlistID, productID, emoji string, origin string) (entity.ProductView, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	productRepo Repository
	access      Access
	notifier    notify.Notifier
	projector   *notify.Projector
	locks       *keyedMutex
	logger      log.Logger
}

func NewService(productRepo Repository, access Access, notifier notify.Notifier, projector *notify.Projector, logger log.Logger) Service {
	return service{productRepo, access, notifier, projector, newKeyedMutex(), logger}
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

// Checks the user can edit the wishlist and returns both.
func (s service) authorize(ctx context.Context, wishlistID string) (string, entity.Wishlist, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return "", entity.Wishlist{}, err
	}
	w, err := s.access.Editable(ctx, username, wishlistID)
	return username, w, err
}

// Mutation guard: a product is only reachable through the wishlist it belongs to.
func belongsTo(wishlistID string) Mutation {
	return func(p *entity.Product) error {
		if p.WishlistID != wishlistID {
			return errors.BadRequest("Product does not belong to this wishlist")
		}
		return nil
	}
}

// Chains mutations, stopping at the first error.
func chain(mutations ...Mutation) Mutation {
	return func(p *entity.Product) error {
		for _, m := range mutations {
			if err := m(p); err != nil {
				return err
			}
		}
		return nil
	}
}

// NormalizeInput trims, validates and normalizes the product input in place.
// Wishlist templates run their products through it before instantiating them.
func NormalizeInput(input *entity.ProductInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return validationResponse(valerr)
	}
	if input.Price < 0 {
		valerr := errors.New("price:Price cannot be negative")
		return errors.GenerateValidationErrorResponse([]error{valerr})
	}
	if input.Category == "" {
		input.Category = entity.DefaultCategory
	}
	input.Tags = normalizeTags(input.Tags)
	return nil
}

// Drops blank and duplicate tags, keeping the first spelling.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{})
	normalized := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// Converts a govalidator failure into the standard validation response.
func validationResponse(valerr error) error {
	if errs, ok := valerr.(govalidator.Errors); ok {
		return errors.GenerateValidationErrorResponse(errs.Errors())
	}
	return errors.GenerateValidationErrorResponse([]error{valerr})
}

func (s service) addproduct(ctx context.Context, wishlistID string, input entity.ProductInput, origin string) (entity.ProductView, error) {
	username, _, err := s.authorize(ctx, wishlistID)
	if err != nil {
		return entity.ProductView{}, err
	}
	if err := NormalizeInput(&input); err != nil {
		return entity.ProductView{}, err
	}
	now := time.Now().UnixMilli()
	p := entity.Product{
		ID:         uuid.NewString(),
		WishlistID: wishlistID,
		Name:       input.Name,
		ImageURL:   input.ImageURL,
		Price:      input.Price,
		Category:   input.Category,
		Tags:       input.Tags,
		AddedBy:    username,
		Comments:   []entity.Comment{},
		Reactions:  []entity.Reaction{},
		Created:    now,
		Updated:    now,
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	if dberr := s.productRepo.AddProduct(ctx, s.logger, p); dberr != nil {
		return entity.ProductView{}, dberr
	}
	s.notifier.Notify(ctx, entity.ProductAdded, p, origin)
	return s.projector.Project(ctx, p), nil
}

func (s service) updateproduct(ctx context.Context, wishlistID, productID string, input entity.ProductInput, origin string) (entity.ProductView, error) {
	username, _, err := s.authorize(ctx, wishlistID)
	if err != nil {
		return entity.ProductView{}, err
	}
	if err := NormalizeInput(&input); err != nil {
		return entity.ProductView{}, err
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	p, dberr := s.productRepo.UpdateProduct(ctx, s.logger, productID, chain(belongsTo(wishlistID), func(p *entity.Product) error {
		p.Name = input.Name
		p.ImageURL = input.ImageURL
		p.Price = input.Price
		p.Category = input.Category
		p.Tags = input.Tags
		p.EditedBy = username
		p.Updated = time.Now().UnixMilli()
		return nil
	}))
	if dberr != nil {
		return entity.ProductView{}, dberr
	}
	s.notifier.Notify(ctx, entity.ProductUpdated, p, origin)
	return s.projector.Project(ctx, p), nil
}

func (s service) deleteproduct(ctx context.Context, wishlistID, productID string, origin string) error {
	if _, _, err := s.authorize(ctx, wishlistID); err != nil {
		return err
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	p, dberr := s.productRepo.GetProduct(ctx, s.logger, productID)
	if dberr != nil {
		return dberr
	}
	if err := belongsTo(wishlistID)(&p); err != nil {
		return err
	}
	if dberr := s.productRepo.DeleteProduct(ctx, s.logger, wishlistID, productID); dberr != nil {
		return dberr
	}
	s.notifier.NotifyDeleted(ctx, wishlistID, productID, origin)
	return nil
}

func (s service) addcomment(ctx context.Context, wishlistID, productID string, input entity.CommentInput, origin string) (entity.ProductView, error) {
	username, _, err := s.authorize(ctx, wishlistID)
	if err != nil {
		return entity.ProductView{}, err
	}
	input.Text = strings.TrimSpace(input.Text)
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return entity.ProductView{}, validationResponse(valerr)
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	p, dberr := s.productRepo.UpdateProduct(ctx, s.logger, productID, chain(belongsTo(wishlistID), func(p *entity.Product) error {
		p.Comments = append(p.Comments, entity.Comment{
			ID:      uuid.NewString(),
			Text:    input.Text,
			Author:  username,
			Created: time.Now().UnixMilli(),
		})
		return nil
	}))
	if dberr != nil {
		return entity.ProductView{}, dberr
	}
	s.notifier.Notify(ctx, entity.CommentAdded, p, origin)
	return s.projector.Project(ctx, p), nil
}

func (s service) deletecomment(ctx context.Context, wishlistID, productID, commentID string, origin string) (entity.ProductView, error) {
	username, w, err := s.authorize(ctx, wishlistID)
	if err != nil {
		return entity.ProductView{}, err
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	p, dberr := s.productRepo.UpdateProduct(ctx, s.logger, productID, chain(belongsTo(wishlistID), func(p *entity.Product) error {
		i := p.FindComment(commentID)
		if i < 0 {
			return errors.NotFound("Comment not found")
		}
		if p.Comments[i].Author != username && !w.IsOwner(username) {
			return errors.Forbidden("Only the author or the wishlist owner can delete this comment")
		}
		p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
		return nil
	}))
	if dberr != nil {
		return entity.ProductView{}, dberr
	}
	s.notifier.Notify(ctx, entity.CommentDeleted, p, origin)
	return s.projector.Project(ctx, p), nil
}

func (s service) togglereaction(ctx context.Context, wishlistID, productID string, input entity.ReactionInput, origin string) (entity.ProductView, bool, error) {
	username, _, err := s.authorize(ctx, wishlistID)
	if err != nil {
		return entity.ProductView{}, false, err
	}
	input.Emoji = strings.TrimSpace(input.Emoji)
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return entity.ProductView{}, false, validationResponse(valerr)
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	added := false
	p, dberr := s.productRepo.UpdateProduct(ctx, s.logger, productID, chain(belongsTo(wishlistID), func(p *entity.Product) error {
		// Reset on every attempt, the transaction may run this more than once
		if i := p.FindReaction(username, input.Emoji); i >= 0 {
			p.Reactions = append(p.Reactions[:i], p.Reactions[i+1:]...)
			added = false
			return nil
		}
		p.Reactions = append(p.Reactions, entity.Reaction{
			ID:      uuid.NewString(),
			Emoji:   input.Emoji,
			User:    username,
			Created: time.Now().UnixMilli(),
		})
		added = true
		return nil
	}))
	if dberr != nil {
		return entity.ProductView{}, false, dberr
	}
	kind := entity.ReactionRemoved
	if added {
		kind = entity.ReactionAdded
	}
	s.notifier.Notify(ctx, kind, p, origin)
	return s.projector.Project(ctx, p), added, nil
}

func (s service) removereaction(ctx context.Context, wishlistID, productID, emoji string, origin string) (entity.ProductView, error) {
	username, _, err := s.authorize(ctx, wishlistID)
	if err != nil {
		return entity.ProductView{}, err
	}

	unlock := s.locks.Lock(wishlistID)
	defer unlock()
	p, dberr := s.productRepo.UpdateProduct(ctx, s.logger, productID, chain(belongsTo(wishlistID), func(p *entity.Product) error {
		i := p.FindReaction(username, emoji)
		if i < 0 {
			return errors.NotFound("Reaction not found")
		}
		p.Reactions = append(p.Reactions[:i], p.Reactions[i+1:]...)
		return nil
	}))
	if dberr != nil {
		return entity.ProductView{}, dberr
	}
	s.notifier.Notify(ctx, entity.ReactionRemoved, p, origin)
	return s.projector.Project(ctx, p), nil
}
