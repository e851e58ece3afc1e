// Structure of Invitation Model in Wishful.

package entity

// Invitation states.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Saved in DB as invitation:<id>
type Invitation struct {
	ID           string `json:"id" redis:"id"`
	WishlistID   string `json:"wishlistId" redis:"wishlist_id"`
	WishlistName string `json:"wishlistName" redis:"wishlist_name"`
	From         string `json:"from" redis:"from"`
	To           string `json:"to" redis:"to"`
	Status       string `json:"status" redis:"status"`
	Created      int64  `json:"createdAt" redis:"created_at"`
}

// Body of invite requests.
type InviteInput struct {
	Username string `json:"username" valid:"required,type(string),stringlength(5|20),nospace~username:No spaces allowed here"`
}
