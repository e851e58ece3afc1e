// Event merge tests in Wishful.

package subscription

import (
	"Wishful/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
)

func product(id, name string) entity.ProductView {
	return entity.ProductView{ID: id, WishlistID: "w1", Name: name}
}

func event(kind entity.EventKind, p entity.ProductView) entity.Message {
	return entity.Message{Event: kind, Data: entity.EventPayload{WishlistID: "w1", Product: &p}}
}

func deleted(id string) entity.Message {
	return entity.Message{Event: entity.ProductDeleted, Data: entity.EventPayload{WishlistID: "w1", ProductID: id}}
}

func names(products []entity.ProductView) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID+":"+p.Name)
	}
	return out
}

func TestApply(t *testing.T) {
	start := []entity.ProductView{product("p2", "Lamp"), product("p1", "Mug")}

	cases := []struct {
		name string
		msg  entity.Message
		want []string
	}{
		{"AddPrepends", event(entity.ProductAdded, product("p3", "Book")), []string{"p3:Book", "p2:Lamp", "p1:Mug"}},
		{"AddKnownIsNoop", event(entity.ProductAdded, product("p1", "Cup")), []string{"p2:Lamp", "p1:Mug"}},
		{"UpdateReplacesInPlace", event(entity.ProductUpdated, product("p1", "Cup")), []string{"p2:Lamp", "p1:Cup"}},
		{"UpdateUnknownAdds", event(entity.ProductUpdated, product("p9", "Pen")), []string{"p9:Pen", "p2:Lamp", "p1:Mug"}},
		{"CommentReplaces", event(entity.CommentAdded, product("p2", "Lamp!")), []string{"p2:Lamp!", "p1:Mug"}},
		{"ReactionRemovedReplaces", event(entity.ReactionRemoved, product("p1", "Mug?")), []string{"p2:Lamp", "p1:Mug?"}},
		{"DeleteRemoves", deleted("p2"), []string{"p1:Mug"}},
		{"DeleteUnknownIsNoop", deleted("p7"), []string{"p2:Lamp", "p1:Mug"}},
		{"UnknownKindIgnored", event(entity.EventKind("product-renamed"), product("p1", "Cup")), []string{"p2:Lamp", "p1:Mug"}},
		{"MissingIDIgnored", entity.Message{Event: entity.ProductUpdated, Data: entity.EventPayload{WishlistID: "w1"}}, []string{"p2:Lamp", "p1:Mug"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(start, tc.msg)
			assert.Equal(t, tc.want, names(got))
			// The input list is never modified
			assert.Equal(t, []string{"p2:Lamp", "p1:Mug"}, names(start))
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	start := []entity.ProductView{product("p1", "Mug")}
	msgs := []entity.Message{
		event(entity.ProductAdded, product("p2", "Lamp")),
		event(entity.ProductUpdated, product("p1", "Cup")),
		deleted("p2"),
	}

	for _, msg := range msgs {
		once := Apply(start, msg)
		twice := Apply(once, msg)
		assert.Equal(t, names(once), names(twice), string(msg.Event))
	}
}

func TestApplyOnEmptyList(t *testing.T) {
	assert.Empty(t, Apply(nil, deleted("p1")))
	assert.Equal(t, []string{"p1:Mug"}, names(Apply(nil, event(entity.ProductAdded, product("p1", "Mug")))))
}
