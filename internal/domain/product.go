package domain

import "time"

type Category struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// Product is a catalog entry. Category is only set on reads, where the
// category reference is resolved against the categories collection.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CategoryID  string    `json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductList struct {
	Count    int       `json:"count"`
	Products []Product `json:"products"`
}

func NewProductList(products []Product) ProductList {
	if products == nil {
		products = []Product{}
	}
	return ProductList{Count: len(products), Products: products}
}
