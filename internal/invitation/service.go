// Service layer of the internal package invitation.

package invitation

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/user"
	"Wishful/internal/wishlist"
	"Wishful/pkg/log"
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// Service layer of internal package invitation which encapsulates collaboration invites of Wishful.
type Service interface {
	// Owner invites a user into a wishlist
	invite(ctx context.Context, wishlistID string, input entity.InviteInput) (entity.Invitation, error)
	// Pending invitations of the current user
	listinvitations(ctx context.Context) ([]entity.Invitation, error)
	// Invitee joins the wishlist
	accept(ctx context.Context, invitationID string) (entity.Invitation, error)
	// Invitee refuses
	decline(ctx context.Context, invitationID string) (entity.Invitation, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	invitationRepo Repository
	userRepo       user.Repository
	wishlistRepo   wishlist.Repository
	guard          wishlist.Guard
	logger         log.Logger
}

func NewService(invitationRepo Repository, userRepo user.Repository, wishlistRepo wishlist.Repository, logger log.Logger) Service {
	return service{invitationRepo, userRepo, wishlistRepo, wishlist.NewGuard(wishlistRepo, logger), logger}
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

func (s service) invite(ctx context.Context, wishlistID string, input entity.InviteInput) (entity.Invitation, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return entity.Invitation{}, err
	}
	w, err := s.guard.Owned(ctx, username, wishlistID)
	if err != nil {
		return entity.Invitation{}, err
	}
	input.Username = strings.TrimSpace(input.Username)
	if _, valerr := govalidator.ValidateStruct(input); valerr != nil {
		if errs, ok := valerr.(govalidator.Errors); ok {
			return entity.Invitation{}, errors.GenerateValidationErrorResponse(errs.Errors())
		}
		return entity.Invitation{}, errors.GenerateValidationErrorResponse([]error{valerr})
	}
	if w.CanEdit(input.Username) {
		return entity.Invitation{}, errors.BadRequest("User is already a collaborator of this wishlist")
	}
	available, dberr := s.userRepo.HasUser(ctx, s.logger, input.Username)
	if dberr != nil {
		return entity.Invitation{}, dberr
	} else if !available {
		return entity.Invitation{}, errors.NotFound("User not available")
	}

	inv := entity.Invitation{
		ID:           uuid.NewString(),
		WishlistID:   w.ID,
		WishlistName: w.Name,
		From:         username,
		To:           input.Username,
		Status:       entity.InvitationPending,
		Created:      time.Now().UnixMilli(),
	}
	if dberr := s.invitationRepo.CreateInvitation(ctx, s.logger, inv); dberr != nil {
		return entity.Invitation{}, dberr
	}
	return inv, nil
}

func (s service) listinvitations(ctx context.Context) ([]entity.Invitation, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	return s.invitationRepo.ListPending(ctx, s.logger, username)
}

// Loads the invitation and checks it was sent to the current user.
func (s service) received(ctx context.Context, invitationID string) (string, entity.Invitation, error) {
	username, err := currentUser(ctx, s.logger)
	if err != nil {
		return "", entity.Invitation{}, err
	}
	inv, err := s.invitationRepo.GetInvitation(ctx, s.logger, invitationID)
	if err != nil {
		return "", inv, err
	}
	if inv.To != username {
		return "", inv, errors.Forbidden("This invitation wasn't sent to you")
	}
	return username, inv, nil
}

func (s service) accept(ctx context.Context, invitationID string) (entity.Invitation, error) {
	username, inv, err := s.received(ctx, invitationID)
	if err != nil {
		return inv, err
	}
	// The wishlist may have been deleted since
	if _, err := s.wishlistRepo.GetWishlist(ctx, s.logger, inv.WishlistID); err != nil {
		return inv, err
	}
	if err := s.invitationRepo.Resolve(ctx, s.logger, inv, entity.InvitationAccepted); err != nil {
		return inv, err
	}
	if err := s.wishlistRepo.AddMember(ctx, s.logger, inv.WishlistID, username, time.Now().UnixMilli()); err != nil {
		return inv, err
	}
	inv.Status = entity.InvitationAccepted
	return inv, nil
}

func (s service) decline(ctx context.Context, invitationID string) (entity.Invitation, error) {
	_, inv, err := s.received(ctx, invitationID)
	if err != nil {
		return inv, err
	}
	if err := s.invitationRepo.Resolve(ctx, s.logger, inv, entity.InvitationDeclined); err != nil {
		return inv, err
	}
	inv.Status = entity.InvitationDeclined
	return inv, nil
}
