// Structure of Product Model in Wishful.
// Comments and reactions are nested in the product, there are no separate collections for them.

package entity

// DefaultCategory is assigned to products added without a category.
const DefaultCategory = "Uncategorized"

// Saved in DB as a JSON document under product:<id>.
// User references are stored as usernames and projected into UserRef before leaving the server.
type Product struct {
	ID         string     `json:"id"`
	WishlistID string     `json:"wishlistId"`
	Name       string     `json:"name"`
	ImageURL   string     `json:"imageUrl"`
	Price      float64    `json:"price"`
	Category   string     `json:"category"`
	Tags       []string   `json:"tags"`
	AddedBy    string     `json:"addedBy"`
	EditedBy   string     `json:"editedBy,omitempty"`
	Comments   []Comment  `json:"comments"`
	Reactions  []Reaction `json:"reactions"`
	Created    int64      `json:"createdAt"`
	Updated    int64      `json:"updatedAt"`
}

type Comment struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Author  string `json:"author"`
	Created int64  `json:"createdAt"`
}

type Reaction struct {
	ID      string `json:"id"`
	Emoji   string `json:"emoji"`
	User    string `json:"user"`
	Created int64  `json:"createdAt"`
}

// FindReaction returns the index of username's reaction with emoji, -1 if absent.
func (p Product) FindReaction(username, emoji string) int {
	for i, r := range p.Reactions {
		if r.User == username && r.Emoji == emoji {
			return i
		}
	}
	return -1
}

// FindComment returns the index of the comment with id, -1 if absent.
func (p Product) FindComment(id string) int {
	for i, c := range p.Comments {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ProductView is the fully populated form of a product, sent in HTTP responses and events.
type ProductView struct {
	ID         string         `json:"id"`
	WishlistID string         `json:"wishlistId"`
	Name       string         `json:"name"`
	ImageURL   string         `json:"imageUrl"`
	Price      float64        `json:"price"`
	Category   string         `json:"category"`
	Tags       []string       `json:"tags"`
	AddedBy    UserRef        `json:"addedBy"`
	EditedBy   *UserRef       `json:"editedBy,omitempty"`
	Comments   []CommentView  `json:"comments"`
	Reactions  []ReactionView `json:"reactions"`
	Created    int64          `json:"createdAt"`
	Updated    int64          `json:"updatedAt"`
}

type CommentView struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Author  UserRef `json:"author"`
	Created int64   `json:"createdAt"`
}

type ReactionView struct {
	ID      string  `json:"id"`
	Emoji   string  `json:"emoji"`
	User    UserRef `json:"user"`
	Created int64   `json:"createdAt"`
}

// Body of add and update product requests.
type ProductInput struct {
	Name     string   `json:"name" valid:"required,type(string),stringlength(1|200),nospaceonly~name:Name cannot contain only spaces"`
	ImageURL string   `json:"imageUrl" valid:"type(string),stringlength(0|2048),optional"`
	Price    float64  `json:"price" valid:"-"`
	Category string   `json:"category" valid:"type(string),stringlength(0|50),optional"`
	Tags     []string `json:"tags" valid:"-"`
}

// Body of add comment requests.
type CommentInput struct {
	Text string `json:"text" valid:"required,type(string),stringlength(1|1000),nospaceonly~text:Comment cannot be blank"`
}

// Body of toggle reaction requests.
type ReactionInput struct {
	Emoji string `json:"emoji" valid:"required,type(string),emoji~emoji:Not a valid emoji"`
}

// Query of GET /api/wishlists/:id/products/filter.
type ProductFilter struct {
	Category string
	Tags     []string
	Search   string
}
