package model

import (
	"encoding/json"
	"time"
)

const (
	AttemptPending  = "pending"
	AttemptApproved = "approved"
	AttemptRejected = "rejected"
)

// VoucherTask is an activity residents complete to earn voucher points.
type VoucherTask struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Points      int64     `json:"points"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t VoucherTask) MarshalJSON() ([]byte, error) {
	type alias VoucherTask
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{alias(t), FormatTime(t.CreatedAt), FormatTime(t.UpdatedAt)})
}

// TaskAttempt is a resident's claim that a task was completed, awaiting
// admin review.
type TaskAttempt struct {
	ID         int64      `json:"id"`
	TaskID     int64      `json:"taskId"`
	TaskTitle  string     `json:"taskTitle"`
	Points     int64      `json:"points"`
	UserEmail  string     `json:"userEmail"`
	Status     string     `json:"status"`
	Note       string     `json:"note"`
	ProofPath  *string    `json:"proofPath,omitempty"`
	ReviewNote *string    `json:"reviewNote,omitempty"`
	ReviewedBy *string    `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (a TaskAttempt) MarshalJSON() ([]byte, error) {
	type alias TaskAttempt
	return json.Marshal(struct {
		alias
		ReviewedAt *string `json:"reviewedAt,omitempty"`
		CreatedAt  string  `json:"createdAt"`
	}{alias(a), formatTimePtr(a.ReviewedAt), FormatTime(a.CreatedAt)})
}

type CreateVoucherTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Points      int64  `json:"points" binding:"required,gt=0"`
}

type UpdateVoucherTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Points      *int64  `json:"points,omitempty" binding:"omitempty,gt=0"`
	Active      *bool   `json:"active,omitempty"`
}

// AttemptFilters narrows admin attempt listings.
type AttemptFilters struct {
	Status    *string
	UserEmail *string
}
