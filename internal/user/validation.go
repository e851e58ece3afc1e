// Custom govalidator tags for the users collaborating on wishlists.

package user

import (
	"Wishful/pkg/log"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"
)

// Usernames end up in redis keys and invitation lookups, so they stay ASCII.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// Registers user specific govalidator tags, global ones live in pkg/validations.
func RegisterCustomValidationTags(ctx context.Context, logger log.Logger) {
	govalidator.TagMap["username_custom"] = govalidator.Validator(func(str string) bool {
		return usernamePattern.MatchString(str)
	})
	govalidator.TagMap["fullname_custom"] = govalidator.Validator(isFullName)

	logger.WithCtx(ctx).Info().Msg("Successfully registered user related custom validations.")
}

// Full names are printed next to products, comments and reactions.
// Letters of any script are fine, joined by spaces, hyphens or apostrophes.
func isFullName(str string) bool {
	if strings.TrimSpace(str) == "" {
		return false
	}
	for _, r := range str {
		if unicode.IsLetter(r) || r == ' ' || r == '-' || r == '\'' {
			continue
		}
		return false
	}
	return true
}
