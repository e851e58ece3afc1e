// Structure of the Wishlist Template Model in Wishful.

package entity

// Saved in DB as a JSON document under template:<id>, its usage count lives in the hash templates:usage.
// Built-in templates have no creator and nobody may change them.
type Template struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	IsPublic    bool              `json:"isPublic"`
	CreatedBy   string            `json:"createdBy,omitempty"`
	Products    []TemplateProduct `json:"templateProducts"`
	UsageCount  int64             `json:"usageCount"`
	Created     int64             `json:"createdAt"`
	Updated     int64             `json:"updatedAt"`
}

// A product copied into every wishlist made from the template.
type TemplateProduct struct {
	Name        string   `json:"name"`
	ImageURL    string   `json:"imageUrl"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

// ProductInput returns the fields a product is created from.
func (tp TemplateProduct) ProductInput() ProductInput {
	return ProductInput{Name: tp.Name, ImageURL: tp.ImageURL, Price: tp.Price, Category: tp.Category, Tags: tp.Tags}
}

// Body of create and update template requests, IsPublic defaults to true on create.
type TemplateInput struct {
	Name        string            `json:"name" valid:"required,type(string),stringlength(1|100),nospaceonly~name:Name cannot contain only spaces"`
	Description string            `json:"description" valid:"type(string),stringlength(0|500),optional"`
	Category    string            `json:"category" valid:"required,type(string),stringlength(1|50),nospaceonly~category:Category cannot contain only spaces"`
	IsPublic    *bool             `json:"isPublic" valid:"-"`
	Products    []TemplateProduct `json:"templateProducts" valid:"-"`
}

// Body of use template requests, empty fields are taken from the template.
type TemplateUse struct {
	Name        string `json:"name" valid:"type(string),stringlength(0|100),optional"`
	Description string `json:"description" valid:"type(string),stringlength(0|500),optional"`
	IsPublic    bool   `json:"isPublic" valid:"-"`
}

// TemplateUsed is the response of POST /api/templates/:id/use.
type TemplateUsed struct {
	Wishlist Wishlist      `json:"wishlist"`
	Products []ProductView `json:"products"`
}

// Body of update template requests, absent fields keep their value.
type TemplateUpdate struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Category    *string            `json:"category"`
	IsPublic    *bool              `json:"isPublic"`
	Products    *[]TemplateProduct `json:"templateProducts"`
}
