package user

import (
	"testing"

	"github.com/asaskevich/govalidator"
	"github.com/stretchr/testify/assert"
)

func TestCustomValidationTags(t *testing.T) {
	RegisterCustomValidationTags(ctx, logger)

	username := govalidator.TagMap["username_custom"]
	assert.True(t, username("alice.b_01"))
	assert.False(t, username("alice-b"))
	assert.False(t, username("zoë"))

	fullname := govalidator.TagMap["fullname_custom"]
	for _, name := range []string{"Jonas Kahn", "Anne-Marie O'Neil", "Zoë Ørsted"} {
		assert.True(t, fullname(name), name)
	}
	for _, name := range []string{"Jonas 2", "   ", "Bob!"} {
		assert.False(t, fullname(name), name)
	}
}
