package model

// Product is a catalog entry as returned by the products API.
type Product struct {
	ID          int     `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Price       float64 `json:"price" yaml:"price"`
	Stock       int     `json:"stock" yaml:"stock"`
	Rating      float64 `json:"rating" yaml:"rating"`
	Brand       string  `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
}

// ProductsPage is one page of the products collection endpoint.
type ProductsPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// ProductInput is the payload for create and update calls.
// Brand is omitted from the request body when empty.
type ProductInput struct {
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
	Brand    string  `json:"brand,omitempty"`
}

// Apply returns p with the fields of in written over it.
func (in ProductInput) Apply(p Product) Product {
	p.Title = in.Title
	p.Price = in.Price
	p.Stock = in.Stock
	p.Category = in.Category
	p.Brand = in.Brand
	return p
}

// DeleteResult is the body returned by DELETE /products/{id}.
type DeleteResult struct {
	ID        int  `json:"id"`
	IsDeleted bool `json:"isDeleted"`
}

// DefaultCategories is offered by the product form when the category list
// endpoint is unavailable.
var DefaultCategories = []string{
	"smartphones",
	"laptops",
	"fragrances",
	"skincare",
	"groceries",
	"home-decoration",
}
