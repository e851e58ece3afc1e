package wishlist

import (
	"Wishful/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(products []entity.Product) []string {
	out := []string{}
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	products := []entity.Product{
		{ID: "a", Name: "Red Mug", Category: "Kitchen", Tags: []string{"gift", "ceramic"}},
		{ID: "b", Name: "Blue Scarf", Category: "Clothes", Tags: []string{"Gift", "wool"}},
		{ID: "c", Name: "Teapot", Category: "Kitchen", Tags: []string{"ceramic"}},
	}
	cases := map[string]struct {
		filter entity.ProductFilter
		want   []string
	}{
		"empty filter keeps everything": {entity.ProductFilter{}, []string{"a", "b", "c"}},
		"category":                      {entity.ProductFilter{Category: "Kitchen"}, []string{"a", "c"}},
		"tags are case insensitive":     {entity.ProductFilter{Tags: []string{"GIFT"}}, []string{"a", "b"}},
		"every tag must match":          {entity.ProductFilter{Tags: []string{"gift", "ceramic"}}, []string{"a"}},
		"search by name":                {entity.ProductFilter{Search: "scarf"}, []string{"b"}},
		"search by tag":                 {entity.ProductFilter{Search: "wool"}, []string{"b"}},
		"criteria combine":              {entity.ProductFilter{Category: "Kitchen", Search: "pot"}, []string{"c"}},
		"nothing matches":               {entity.ProductFilter{Category: "Garden"}, []string{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(products, tc.filter)))
		})
	}
}

func TestCategories(t *testing.T) {
	products := []entity.Product{
		{Category: "Kitchen"}, {Category: ""}, {Category: "Books"}, {Category: "Kitchen"},
	}
	assert.Equal(t, []string{"Books", "Kitchen", entity.DefaultCategory}, Categories(products))
	assert.Equal(t, []string{}, Categories(nil))
}
