package model

import (
	"encoding/json"
	"time"
)

// Product is a catalog item. Price is in cents.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{alias(p), FormatTime(p.CreatedAt), FormatTime(p.UpdatedAt)})
}

type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price" binding:"gte=0"`
	Stock       int    `json:"stock" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Price       *int64  `json:"price,omitempty" binding:"omitempty,gte=0"`
	Stock       *int    `json:"stock,omitempty" binding:"omitempty,gte=0"`
}

// ProductFilters narrows catalog listings.
type ProductFilters struct {
	Category *string
	Search   *string
}
