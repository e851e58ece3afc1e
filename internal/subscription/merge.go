// Merge of realtime events into the product list of an open wishlist view.

package subscription

import (
	"Wishful/internal/entity"
)

// Apply merges msg into products by product id and returns the new list, products is left untouched.
// Added products are prepended unless already present, updates replace in place
// and are treated as adds when the product is unknown, deletions remove it.
// Applying the same event twice gives the same list as applying it once.
func Apply(products []entity.ProductView, msg entity.Message) []entity.ProductView {
	if !msg.Event.Valid() {
		return products
	}
	id := msg.Data.EntityID()
	if id == "" {
		return products
	}
	at := indexOf(products, id)

	if msg.Event == entity.ProductDeleted {
		if at < 0 {
			return products
		}
		merged := make([]entity.ProductView, 0, len(products)-1)
		merged = append(merged, products[:at]...)
		return append(merged, products[at+1:]...)
	}

	if msg.Data.Product == nil {
		return products
	}
	if at < 0 {
		merged := make([]entity.ProductView, 0, len(products)+1)
		merged = append(merged, *msg.Data.Product)
		return append(merged, products...)
	}
	if msg.Event == entity.ProductAdded {
		// Fetch raced with the event, the fetched copy is as recent
		return products
	}
	merged := make([]entity.ProductView, len(products))
	copy(merged, products)
	merged[at] = *msg.Data.Product
	return merged
}

func indexOf(products []entity.ProductView, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
