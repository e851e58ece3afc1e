// Service layer of the internal package user.

package user

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"context"
)

// Service layer of internal package user which encapsulates UserModel logic of Wishful.
type Service interface {
	// Fetches User Data of the authenticated user
	getuser(context.Context) (entity.User, error)
	// Lists every user, used to pick collaborators
	listusers(context.Context) ([]entity.User, error)
	// Paginated search by username prefix
	searchuser(context.Context, entity.UserSearch) ([]entity.User, uint64, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	userRepo Repository
	logger   log.Logger
}

func NewService(userRepo Repository, logger log.Logger) Service {
	return service{userRepo, logger}
}

func (s service) getuser(ctx context.Context) (entity.User, error) {
	// get username from context
	username, ok := ctx.Value("Username").(string)
	if !ok {
		// username missing from context
		s.logger.WithCtx(ctx).Error().Msg("Type assertion error in user.getuser")
		return entity.User{}, errors.InternalServerError("")
	}
	user, dberr := s.userRepo.GetUser(ctx, s.logger, username)
	if dberr != nil {
		// Error occured in GetUser()
		return entity.User{}, dberr
	}
	// Hide password
	user.Password = ""
	return user, nil
}

func (s service) listusers(ctx context.Context) ([]entity.User, error) {
	return s.userRepo.ListUsers(ctx, s.logger)
}

func (s service) searchuser(ctx context.Context, query entity.UserSearch) ([]entity.User, uint64, error) {
	if len(query.Username) == 0 {
		valerr := errors.New("username:search query cannot be empty")
		return nil, 0, errors.GenerateValidationErrorResponse([]error{valerr})
	}
	return s.userRepo.SearchUser(ctx, s.logger, query)
}
