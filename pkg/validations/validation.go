// All global custom validations in Wishful are defined here.
// These validations are allowed to be used anywhere in the application.

package validations

import (
	"Wishful/pkg/log"
	"context"
	"unicode"

	"github.com/asaskevich/govalidator"
)

func RegisterCustomValidations(ctx context.Context, logger log.Logger) {
	// This global validation doesn't allow whitespace in input.
	govalidator.TagMap["nospace"] = govalidator.Validator(func(str string) bool {
		return !govalidator.HasWhitespace(str)
	})
	// Input made only of whitespace is rejected, whitespace in between words is fine.
	govalidator.TagMap["nospaceonly"] = govalidator.Validator(func(str string) bool {
		return !govalidator.HasWhitespaceOnly(str)
	})
	// Password strength validation.
	// Only checks for 1 letter and 1 number, nothing too complicated.
	govalidator.TagMap["pwdstrength"] = govalidator.Validator(func(pwd string) bool {
		hasChar, hasNum := false, false
		for _, char := range pwd {
			if unicode.IsLetter(char) {
				hasChar = true
			}
			if unicode.IsNumber(char) {
				hasNum = true
			}
			if hasChar && hasNum {
				break
			}
		}
		return hasChar && hasNum
	})

	logger.WithCtx(ctx).Info().Msg("Successfully registered global custom validations.")
}
