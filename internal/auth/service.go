// Service layer of the internal package authentication.

package auth

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/user"
	"Wishful/pkg/log"
	"context"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Lifetime of the issued tokens.
const (
	AccessTokenTTL  = time.Minute * 15
	RefreshTokenTTL = time.Hour * 24 * 7
)

// Service layer of internal package auth which encapsulates authentication logic of Wishful.
type Service interface {
	// Registers an user in Wishful with valid user credentials
	register(context.Context, entity.User) (map[string]interface{}, error)
	// Logs in an user with matching credentials
	login(context.Context, entity.UserLogin) (map[string]interface{}, error)
	// Revokes the access token stored in context
	logout(context.Context) error
	// Issues a fresh token pair for username
	refreshtoken(context.Context, string) (map[string]interface{}, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
// Also helps to pass objects to be used from outer layer.
type service struct {
	accSigningKey string
	refSigningKey string
	userrepo      user.Repository
	authrepo      Repository
	logger        log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(accSigningKey string, refSigningKey string, userrepo user.Repository, authrepo Repository, logger log.Logger) Service {
	return service{accSigningKey, refSigningKey, userrepo, authrepo, logger}
}

func (s service) register(ctx context.Context, ue entity.User) (map[string]interface{}, error) {
	// Validate the received user data which is serialized to entity.User struct
	valerr := s.validateUserData(ctx, ue)
	if valerr != nil {
		// Error occured during validation
		return nil, valerr
	}

	// Hash user password and save the credentials in the user object
	hasheduserpwd, hasherr := s.generatePwDHash(ctx, ue.Password)
	if hasherr != nil {
		return nil, hasherr
	}
	ue.Password = hasheduserpwd
	ue.Created = time.Now().UnixMilli()

	// Save the user in the DB, the repository refuses taken usernames atomically
	_, dberr := s.userrepo.SetOrUpdateUser(ctx, s.logger, ue, false)
	if errors.Is(dberr, 400) {
		// User by the received username is already available in the platform
		valerr := errors.New("username:username is already taken")
		return nil, errors.GenerateValidationErrorResponse([]error{valerr})
	} else if dberr != nil {
		// Error occured in SetOrUpdateUser()
		return nil, dberr
	}
	return s.issueTokens(ctx, ue.Username)
}

func (s service) login(ctx context.Context, ul entity.UserLogin) (map[string]interface{}, error) {
	ue, dberr := s.userrepo.GetUser(ctx, s.logger, ul.Username)
	if errors.Is(dberr, 404) {
		// Unknown users get the same answer as wrong passwords
		return nil, errors.Unauthorized("Invalid username or password")
	} else if dberr != nil {
		return nil, dberr
	}
	if !s.verifyPwDHash(ul.Password, ue.Password) {
		return nil, errors.Unauthorized("Invalid username or password")
	}
	return s.issueTokens(ctx, ue.Username)
}

func (s service) logout(ctx context.Context) error {
	// AuthMiddleware leaves the access token uuid in the context
	tokenUUID, ok := ctx.Value("access_token").(string)
	if !ok {
		s.logger.WithCtx(ctx).Error().Msg("Type assertion error in auth.logout")
		return errors.InternalServerError("")
	}
	dberr := s.authrepo.DelToken(ctx, s.logger, tokenUUID)
	if dberr != nil && !errors.Is(dberr, 404) {
		return dberr
	}
	return nil
}

func (s service) refreshtoken(ctx context.Context, username string) (map[string]interface{}, error) {
	return s.issueTokens(ctx, username)
}

// Generates, saves and returns a token pair in the shape the handlers turn into cookies.
func (s service) issueTokens(ctx context.Context, username string) (map[string]interface{}, error) {
	userJWTData, jwterr := s.createToken(ctx, username)
	if jwterr != nil {
		// Error during generating user's jwtData
		return nil, errors.InternalServerError("")
	}
	// Save generated tokens with expiration into the DB
	dberr := s.authrepo.SetToken(ctx, s.logger, userJWTData)
	if dberr != nil {
		// Error during saving user's JWT
		return nil, dberr
	}
	return map[string]interface{}{
		"access_token":         userJWTData.AccessToken,
		"access_token_exp":     time.Unix(userJWTData.AccTokenExp, 0),
		"access_token_maxAge":  int(AccessTokenTTL.Seconds()),
		"refresh_token":        userJWTData.RefreshToken,
		"refresh_token_exp":    time.Unix(userJWTData.RefTokenExp, 0),
		"refresh_token_maxAge": int(RefreshTokenTTL.Seconds()),
	}, nil
}

// Helper to validate the user data against validation-tags mentioned in its entity.
func (s service) validateUserData(ctx context.Context, ue entity.User) error {
	_, valerr := govalidator.ValidateStruct(ue)
	if valerr != nil {
		errs, ok := valerr.(govalidator.Errors)
		if !ok {
			return errors.GenerateValidationErrorResponse([]error{valerr})
		}
		return errors.GenerateValidationErrorResponse(errs.Errors())
	}
	return nil
}

// Helper to generate password hash and return in string type.
// Uses external package "bcrypt" and its function GenerateFromPassword.
func (s service) generatePwDHash(ctx context.Context, password string) (string, error) {
	pwdbyte, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.WithCtx(ctx).Error().Err(err).Msg("Error occured during Password encryption.")
		return "", errors.InternalServerError("")
	}
	return string(pwdbyte), nil
}

// Helper to verify incoming password with the actual hash of user's set password.
// Helpful during login verification of an user in Wishful.
func (s service) verifyPwDHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

type JWTdata struct {
	Username        string `json:"username"`
	AccessToken     string `json:"access_token"`
	AccTokenExp     int64  `json:"access_token_expiry"`
	AccessTokenUUID string `json:"access_token_uuid"`
	RefreshToken    string `json:"refresh_token"`
	RefTokenExp     int64  `json:"refresh_token_expiry"`
	RefTokenUUID    string `json:"refresh_token_uuid"`
}

// Helper to generate a JWT for an user given the claims data.
func (s service) generateJWT(ctx context.Context, claims jwt.Claims, signingKey string) (string, error) {
	token, jwterr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if jwterr != nil {
		s.logger.WithCtx(ctx).Error().Err(jwterr).Msg("Error occured during JWT generation")
		return "", jwterr
	}
	return token, nil
}

// Helper to create and return jwtData for an user with username passed as param.
func (s service) createToken(ctx context.Context, username string) (*JWTdata, error) {
	jd := &JWTdata{}
	var jwterr error

	jd.Username = username
	jd.AccessTokenUUID = uuid.NewString()
	jd.AccTokenExp = time.Now().Add(AccessTokenTTL).Unix()
	jd.RefTokenUUID = uuid.NewString()
	jd.RefTokenExp = time.Now().Add(RefreshTokenTTL).Unix()

	// Generate AccessToken using above data as claims
	// Pass AccessTokenSigningKey fetched from env to service
	jd.AccessToken, jwterr = s.generateJWT(ctx, jwt.MapClaims{
		"authorized":        true,
		"access_token_uuid": jd.AccessTokenUUID,
		"username":          username,
		"exp":               jd.AccTokenExp,
	}, s.accSigningKey)
	if jwterr != nil {
		// Error in generateJWT
		return nil, jwterr
	}
	// Generate RefreshToken using above data as claims
	// Pass RefreshTokenSigningKey fetched from env to service
	jd.RefreshToken, jwterr = s.generateJWT(ctx, jwt.MapClaims{
		"refresh_token_uuid": jd.RefTokenUUID,
		"username":           username,
		"exp":                jd.RefTokenExp,
	}, s.refSigningKey)
	if jwterr != nil {
		// Error in generateJWT
		return nil, jwterr
	}

	return jd, nil
}
