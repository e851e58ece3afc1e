// All custom validations related to product entity in Wishful are defined here.

package product

import (
	"Wishful/pkg/log"
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
)

// Longest accepted emoji sequence in runes, family and flag sequences included.
const maxEmojiRunes = 16

func RegisterCustomValidationTags(ctx context.Context, logger log.Logger) {
	// Emoji validation.
	// Accepts a single emoji, optionally composed with modifiers, ZWJ and variation selectors.
	govalidator.TagMap["emoji"] = govalidator.Validator(IsEmoji)

	logger.WithCtx(ctx).Info().Msg("Successfully registered product related custom validations.")
}

// IsEmoji reports whether str is one emoji sequence.
func IsEmoji(str string) bool {
	if str == "" || utf8.RuneCountInString(str) > maxEmojiRunes {
		return false
	}
	for i, r := range str {
		if i == 0 {
			if !unicode.Is(unicode.So, r) {
				return false
			}
			continue
		}
		switch {
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r):
		case r == 0x200D: // zero width joiner
		case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		case r == 0x20E3: // combining keycap
		case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		default:
			return false
		}
	}
	return true
}
