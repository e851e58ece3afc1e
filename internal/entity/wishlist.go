// Structure of Wishlist Model in Wishful.

package entity

// Saved in DB as wishlist:<id>, members live in the sorted set wishlist-members:<id>.
type Wishlist struct {
	ID          string   `json:"id" redis:"id"`
	Name        string   `json:"name" redis:"name"`
	Description string   `json:"description" redis:"description"`
	Owner       string   `json:"owner" redis:"owner"`
	IsPublic    bool     `json:"isPublic" redis:"is_public"`
	Created     int64    `json:"createdAt" redis:"created_at"`
	Updated     int64    `json:"updatedAt" redis:"updated_at"`
	Members     []Member `json:"members" redis:"-"`
}

// A collaborator of a wishlist. JoinedAt is unix milliseconds.
type Member struct {
	Username string `json:"username"`
	JoinedAt int64  `json:"joinedAt"`
}

// IsOwner reports whether username owns the wishlist.
func (w Wishlist) IsOwner(username string) bool {
	return w.Owner == username
}

// IsMember reports whether username was invited into the wishlist and accepted.
func (w Wishlist) IsMember(username string) bool {
	for _, m := range w.Members {
		if m.Username == username {
			return true
		}
	}
	return false
}

// CanEdit reports whether username may mutate products of the wishlist.
func (w Wishlist) CanEdit(username string) bool {
	return w.IsOwner(username) || w.IsMember(username)
}

// CanView reports whether username may read the wishlist and follow its live events.
func (w Wishlist) CanView(username string) bool {
	return w.IsPublic || w.CanEdit(username)
}

// Body of create wishlist requests.
type WishlistInput struct {
	Name        string `json:"name" valid:"required,type(string),stringlength(1|100),nospaceonly~name:Name cannot contain only spaces"`
	Description string `json:"description" valid:"type(string),stringlength(0|500),optional"`
	IsPublic    bool   `json:"isPublic" valid:"-"`
}

// Body of update wishlist requests, absent fields stay untouched.
type WishlistUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

// WishlistDetail is the response of GET /api/wishlists/:id.
type WishlistDetail struct {
	Wishlist Wishlist      `json:"wishlist"`
	Products []ProductView `json:"products"`
}
