// User repository encapsulates the data access logic (interactions with the DB) related to Users in Wishful.

package user

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
	// GetUser returns the user with username if exists.
	GetUser(ctx context.Context, logger log.Logger, username string) (entity.User, error)
	// SetOrUpdateUser adds the user with credentials saved in ue into the DB.
	SetOrUpdateUser(ctx context.Context, logger log.Logger, user entity.User, userExistCheck bool) (bool, error)
	// HasUser returns a boolean depending on user's availability.
	HasUser(ctx context.Context, logger log.Logger, username string) (bool, error)
	// SearchUser returns paginated user data depending on the query.
	SearchUser(ctx context.Context, logger log.Logger, query entity.UserSearch) ([]entity.User, uint64, error)
	// ListUsers returns every registered user without credentials.
	ListUsers(ctx context.Context, logger log.Logger) ([]entity.User, error)
}

// repository struct of user Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Returns the user data object if user with the given username is found in the DB.
func (r repository) GetUser(ctx context.Context, logger log.Logger, username string) (entity.User, error) {
	user := entity.User{}
	available, dberr := r.db.Client().HExists(ctx, "user:"+username, "username").Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HExists() in user.GetUser")
		return user, errors.InternalServerError("")
	} else if !available {
		// User not available
		return user, errors.NotFound("User not available")
	}
	if dberr := r.db.Client().HGetAll(ctx, "user:"+username).Scan(&user); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in user.GetUser")
		return user, errors.InternalServerError("")
	}
	return user, nil
}

// Returns true if user got successfully added or updated into the DB.
// userExistCheck set to true skips the availability check, used when updating.
func (r repository) SetOrUpdateUser(ctx context.Context, logger log.Logger, ue entity.User, userExistCheck bool) (bool, error) {
	key := "user:" + ue.Username
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		if !userExistCheck {
			// Checking if an user with username ue.username exists in the DB
			available, dberr := tx.Exists(ctx, key).Result()
			if dberr != nil {
				return dberr
			} else if available != 0 {
				return errors.BadRequest("User already exists")
			}
		}
		// Operation is commited only if the watched keys remain unchanged
		_, dberr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "username", ue.Username, "full_name", ue.FullName, "password", ue.Password, "created", ue.Created)
			// Add user to user:index for faster searches
			pipe.SAdd(ctx, "user:index", ue.Username)
			return nil
		})
		return dberr
	}, key)
	if txferr != nil {
		if err, ok := txferr.(errors.ErrorResponse); ok {
			return false, err
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in SetOrUpdateUser transaction")
		return false, errors.InternalServerError("")
	}
	return true, nil
}

// Returns true if user with the given username exists in Wishful.
func (r repository) HasUser(ctx context.Context, logger log.Logger, username string) (bool, error) {
	available, dberr := r.db.Client().Exists(ctx, "user:"+username).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in user.HasUser")
		return false, errors.InternalServerError("")
	}
	return available != 0, nil
}

// Returns user data matching incoming query in DB.
func (r repository) SearchUser(ctx context.Context, logger log.Logger, query entity.UserSearch) ([]entity.User, uint64, error) {
	searchBy := query.Username + "*"
	initialResult, newCursor, dberr := r.db.Client().SScan(ctx, "user:index", uint64(query.Cursor), searchBy, 10).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SScan() in user.SearchUser")
		return []entity.User{}, uint64(0), errors.InternalServerError("")
	}
	resultSet := make(map[string]struct{}) // Empty set
	// Helper to add values from SScan() into resultSet
	addIntoResultSet := func(resultList []string) {
		for _, u := range resultList {
			resultSet[u] = struct{}{}
		}
	}
	addIntoResultSet(initialResult)
	// Have to repeat SScan() until we get 10 results or cursor returned by the server is 0 again
	// Else unpredictable searchResult will be returned to the client
	for len(resultSet) < 10 && newCursor != 0 {
		freshList, freshCursor, dberr := r.db.Client().SScan(ctx, "user:index", newCursor, searchBy, 10).Result()
		if dberr != nil && dberr != redis.Nil {
			// Error during interacting with DB
			logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SScan() in user.SearchUser")
			return []entity.User{}, uint64(0), errors.InternalServerError("")
		}
		newCursor = freshCursor
		addIntoResultSet(freshList)
	}

	searchResult := []entity.User{}
	for username := range resultSet {
		userData, err := r.GetUser(ctx, logger, username)
		if err != nil {
			// Issues in GetUser()
			return searchResult, uint64(0), err
		}
		// Hide password
		userData.Password = ""
		searchResult = append(searchResult, userData)
	}
	sort.Slice(searchResult, func(i, j int) bool { return searchResult[i].Username < searchResult[j].Username })
	return searchResult, newCursor, nil
}

// Returns every user of Wishful sorted by username, passwords hidden.
func (r repository) ListUsers(ctx context.Context, logger log.Logger) ([]entity.User, error) {
	usernames, dberr := r.db.Client().SMembers(ctx, "user:index").Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in user.ListUsers")
		return nil, errors.InternalServerError("")
	}
	sort.Strings(usernames)
	users := make([]entity.User, 0, len(usernames))
	for _, username := range usernames {
		userData, err := r.GetUser(ctx, logger, username)
		if errors.Is(err, 404) {
			// Index entry outlived its user
			continue
		} else if err != nil {
			return nil, err
		}
		userData.Password = ""
		users = append(users, userData)
	}
	return users, nil
}
