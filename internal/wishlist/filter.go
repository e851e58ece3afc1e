// Category and filter queries over the products of one wishlist.

package wishlist

import (
	"Wishful/internal/entity"
	"sort"
	"strings"
)

// Categories returns the distinct categories of products, sorted.
func Categories(products []entity.Product) []string {
	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = entity.DefaultCategory
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Filter keeps the products matching every criterion of f, order is preserved.
// Category matches exactly, every tag of f must be on the product,
// search matches name or any tag case-insensitively.
func Filter(products []entity.Product, f entity.ProductFilter) []entity.Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := []entity.Product{}
	for _, p := range products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if !hasTags(p, f.Tags) {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

func hasTags(p entity.Product, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchesSearch(p entity.Product, search string) bool {
	if strings.Contains(strings.ToLower(p.Name), search) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}
