package model

import (
	"encoding/json"
	"time"
)

const (
	RequestPending   = "pending"
	RequestFulfilled = "fulfilled"
	RequestRejected  = "rejected"
)

// ProductRequest is a resident asking the minimart to stock something.
type ProductRequest struct {
	ID          int64     `json:"id"`
	UserEmail   string    `json:"userEmail"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Note        string    `json:"note"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (r ProductRequest) MarshalJSON() ([]byte, error) {
	type alias ProductRequest
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{alias(r), FormatTime(r.CreatedAt), FormatTime(r.UpdatedAt)})
}

type CreateProductRequestRequest struct {
	ProductName string `json:"productName" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Note        string `json:"note"`
}

type UpdateProductRequestStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending fulfilled rejected"`
}
