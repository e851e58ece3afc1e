// Projection of stored products into their fully populated form.

package notify

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"context"
)

// UserResolver looks a user up by username, user.Repository satisfies it.
type UserResolver interface {
	GetUser(ctx context.Context, logger log.Logger, username string) (entity.User, error)
}

// Projector resolves the usernames stored on a product into display form.
// Events and HTTP responses carry the same projection.
type Projector struct {
	users  UserResolver
	logger log.Logger
}

func NewProjector(users UserResolver, logger log.Logger) *Projector {
	return &Projector{users: users, logger: logger}
}

// Project returns the populated view of p.
func (pr *Projector) Project(ctx context.Context, p entity.Product) entity.ProductView {
	return pr.project(ctx, p, make(map[string]entity.UserRef))
}

// ProjectAll projects every product, resolving each user once.
func (pr *Projector) ProjectAll(ctx context.Context, products []entity.Product) []entity.ProductView {
	cache := make(map[string]entity.UserRef)
	views := make([]entity.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, pr.project(ctx, p, cache))
	}
	return views
}

func (pr *Projector) project(ctx context.Context, p entity.Product, cache map[string]entity.UserRef) entity.ProductView {
	view := entity.ProductView{
		ID:         p.ID,
		WishlistID: p.WishlistID,
		Name:       p.Name,
		ImageURL:   p.ImageURL,
		Price:      p.Price,
		Category:   p.Category,
		Tags:       p.Tags,
		AddedBy:    pr.resolve(ctx, p.AddedBy, cache),
		Comments:   make([]entity.CommentView, 0, len(p.Comments)),
		Reactions:  make([]entity.ReactionView, 0, len(p.Reactions)),
		Created:    p.Created,
		Updated:    p.Updated,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if p.EditedBy != "" {
		editedBy := pr.resolve(ctx, p.EditedBy, cache)
		view.EditedBy = &editedBy
	}
	for _, c := range p.Comments {
		view.Comments = append(view.Comments, entity.CommentView{
			ID:      c.ID,
			Text:    c.Text,
			Author:  pr.resolve(ctx, c.Author, cache),
			Created: c.Created,
		})
	}
	for _, r := range p.Reactions {
		view.Reactions = append(view.Reactions, entity.ReactionView{
			ID:      r.ID,
			Emoji:   r.Emoji,
			User:    pr.resolve(ctx, r.User, cache),
			Created: r.Created,
		})
	}
	return view
}

// A user which can't be resolved is shown by username only.
func (pr *Projector) resolve(ctx context.Context, username string, cache map[string]entity.UserRef) entity.UserRef {
	if ref, ok := cache[username]; ok {
		return ref
	}
	ref := entity.UserRef{Username: username}
	if user, err := pr.users.GetUser(ctx, pr.logger, username); err == nil {
		ref.FullName = user.FullName
	} else {
		pr.logger.WithCtx(ctx).Debug().Err(err).Str("Username", username).Msg("Couldn't resolve user during projection")
	}
	cache[username] = ref
	return ref
}
