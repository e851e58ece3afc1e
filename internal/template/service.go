// Service layer of the internal package template.

package template

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/notify"
	"Wishful/internal/product"
	"Wishful/internal/wishlist"
	"Wishful/pkg/log"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// ProductWriter is the part of the product storage a template is instantiated into.
type ProductWriter interface {
	AddProduct(ctx context.Context, logger log.Logger, p entity.Product) error
}

// Service layer of internal package template which encapsulates wishlist template logic of Wishful.
type Service interface {
	// Public templates plus the user's own, most used first
	listtemplates(context.Context) ([]entity.Template, error)
	gettemplate(context.Context, string) (entity.Template, error)
	createtemplate(context.Context, entity.TemplateInput) (entity.Template, error)
	// Creator only
	updatetemplate(context.Context, string, entity.TemplateUpdate) (entity.Template, error)
	// Creator only
	deletetemplate(context.Context, string) error
	// Creates a wishlist of the user holding the template's products
	usetemplate(context.Context, string, entity.TemplateUse) (entity.TemplateUsed, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	templateRepo Repository
	wishlistRepo wishlist.Repository
	products     ProductWriter
	projector    *notify.Projector
	logger       log.Logger
}

func NewService(templateRepo Repository, wishlistRepo wishlist.Repository, products ProductWriter, projector *notify.Projector, logger log.Logger) Service {
	return service{templateRepo, wishlistRepo, products, projector, logger}
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

// Private templates are only visible to their creator.
func (s service) visible(ctx context.Context, username, id string) (entity.Template, error) {
	t, err := s.templateRepo.GetTemplate(ctx, s.logger, id)
	if err != nil {
		return t, err
	}
	if !t.IsPublic && t.CreatedBy != username {
		return entity.Template{}, errors.Forbidden("Access denied")
	}
	return t, nil
}

// Built-in templates have no creator, so nobody owns them.
func (s service) owned(ctx context.Context, username, id string) (entity.Template, error) {
	t, err := s.templateRepo.GetTemplate(ctx, s.logger, id)
	if err != nil {
		return t, err
	}
	if t.CreatedBy == "" || t.CreatedBy != username {
		return entity.Template{}, errors.Forbidden("Only the creator can change this template")
	}
	return t, nil
}

func (s service) listtemplates(ctx context.Context) ([]entity.Template, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	ids, dberr := s.templateRepo.ListTemplateIDs(ctx, s.logger, username)
	if dberr != nil {
		return nil, dberr
	}
	templates := make([]entity.Template, 0, len(ids))
	for _, id := range ids {
		t, dberr := s.templateRepo.GetTemplate(ctx, s.logger, id)
		if errors.Is(dberr, 404) {
			// Deleted while we were listing
			continue
		} else if dberr != nil {
			return nil, dberr
		}
		templates = append(templates, t)
	}
	sort.SliceStable(templates, func(i, j int) bool {
		a, b := templates[i], templates[j]
		if a.UsageCount != b.UsageCount {
			return a.UsageCount > b.UsageCount
		}
		if a.Created != b.Created {
			return a.Created > b.Created
		}
		return a.ID < b.ID
	})
	return templates, nil
}

func (s service) gettemplate(ctx context.Context, id string) (entity.Template, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.Template{}, err
	}
	return s.visible(ctx, username, id)
}

// Validates input and normalizes its products the way product creation does.
func normalize(input *entity.TemplateInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return validationResponse(valerr)
	}
	products := make([]entity.TemplateProduct, 0, len(input.Products))
	for _, tp := range input.Products {
		pi := tp.ProductInput()
		if err := product.NormalizeInput(&pi); err != nil {
			return err
		}
		products = append(products, entity.TemplateProduct{
			Name:        pi.Name,
			ImageURL:    pi.ImageURL,
			Price:       pi.Price,
			Category:    pi.Category,
			Tags:        pi.Tags,
			Description: strings.TrimSpace(tp.Description),
		})
	}
	input.Products = products
	return nil
}

func (s service) createtemplate(ctx context.Context, input entity.TemplateInput) (entity.Template, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.Template{}, err
	}
	if err := normalize(&input); err != nil {
		return entity.Template{}, err
	}
	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}
	now := time.Now().UnixMilli()
	t := entity.Template{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		IsPublic:    isPublic,
		CreatedBy:   username,
		Products:    input.Products,
		Created:     now,
		Updated:     now,
	}
	if dberr := s.templateRepo.CreateTemplate(ctx, s.logger, t); dberr != nil {
		return entity.Template{}, dberr
	}
	return t, nil
}

func (s service) updatetemplate(ctx context.Context, id string, update entity.TemplateUpdate) (entity.Template, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.Template{}, err
	}
	t, err := s.owned(ctx, username, id)
	if err != nil {
		return entity.Template{}, err
	}
	// Absent fields keep their value, the merged result goes through the create rules
	input := entity.TemplateInput{Name: t.Name, Description: t.Description, Category: t.Category, Products: t.Products}
	if update.Name != nil {
		input.Name = *update.Name
	}
	if update.Description != nil {
		input.Description = *update.Description
	}
	if update.Category != nil {
		input.Category = *update.Category
	}
	if update.Products != nil {
		input.Products = *update.Products
	}
	if update.IsPublic != nil {
		t.IsPublic = *update.IsPublic
	}
	if err := normalize(&input); err != nil {
		return entity.Template{}, err
	}
	t.Name, t.Description, t.Category, t.Products = input.Name, input.Description, input.Category, input.Products
	t.Updated = time.Now().UnixMilli()
	if dberr := s.templateRepo.UpdateTemplate(ctx, s.logger, t); dberr != nil {
		return entity.Template{}, dberr
	}
	return t, nil
}

func (s service) deletetemplate(ctx context.Context, id string) error {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return err
	}
	t, err := s.owned(ctx, username, id)
	if err != nil {
		return err
	}
	return s.templateRepo.DeleteTemplate(ctx, s.logger, t)
}

// Nobody can be viewing the new wishlist yet, so its products are added without notifying.
func (s service) usetemplate(ctx context.Context, id string, use entity.TemplateUse) (entity.TemplateUsed, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.TemplateUsed{}, err
	}
	t, err := s.visible(ctx, username, id)
	if err != nil {
		return entity.TemplateUsed{}, err
	}
	input := entity.WishlistInput{
		Name:        strings.TrimSpace(use.Name),
		Description: strings.TrimSpace(use.Description),
		IsPublic:    use.IsPublic,
	}
	if input.Name == "" {
		input.Name = t.Name
	}
	if input.Description == "" {
		input.Description = t.Description
	}
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		return entity.TemplateUsed{}, validationResponse(valerr)
	}
	now := time.Now().UnixMilli()
	w := entity.Wishlist{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Owner:       username,
		IsPublic:    input.IsPublic,
		Created:     now,
		Updated:     now,
		Members:     []entity.Member{},
	}
	if dberr := s.wishlistRepo.CreateWishlist(ctx, s.logger, w); dberr != nil {
		return entity.TemplateUsed{}, dberr
	}

	products := make([]entity.Product, 0, len(t.Products))
	for i, tp := range t.Products {
		// Listing is newest first, stepping back in time keeps the template's order
		created := now - int64(i)
		p := entity.Product{
			ID:         uuid.NewString(),
			WishlistID: w.ID,
			Name:       tp.Name,
			ImageURL:   tp.ImageURL,
			Price:      tp.Price,
			Category:   tp.Category,
			Tags:       tp.Tags,
			AddedBy:    username,
			Comments:   []entity.Comment{},
			Reactions:  []entity.Reaction{},
			Created:    created,
			Updated:    created,
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if dberr := s.products.AddProduct(ctx, s.logger, p); dberr != nil {
			return entity.TemplateUsed{}, dberr
		}
		products = append(products, p)
	}

	if _, dberr := s.templateRepo.IncrUsage(ctx, s.logger, t.ID); dberr != nil {
		// The wishlist exists already, a lost count isn't worth failing the request
		s.logger.WithCtx(ctx).Warn().Err(dberr).Str("Template", t.ID).Msg("Couldn't count template usage")
	}
	return entity.TemplateUsed{Wishlist: w, Products: s.projector.ProjectAll(ctx, products)}, nil
}

// Converts a govalidator failure into the standard validation response.
func validationResponse(valerr error) error {
	if errs, ok := valerr.(govalidator.Errors); ok {
		return errors.GenerateValidationErrorResponse(errs.Errors())
	}
	return errors.GenerateValidationErrorResponse([]error{valerr})
}
