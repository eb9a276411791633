package model

import (
	"encoding/json"
	"time"
)

// Audit actions recorded for admin mutations.
const (
	ActionUserCreated        = "user.created"
	ActionUserUpdated        = "user.updated"
	ActionUserSuspended      = "user.suspended"
	ActionUserUnsuspended    = "user.unsuspended"
	ActionUserPasswordReset  = "user.password_reset"
	ActionInvitationResent   = "user.invitation_resent"
	ActionUsersBulkImported  = "user.bulk_imported"
	ActionProductCreated     = "product.created"
	ActionProductUpdated     = "product.updated"
	ActionProductDeleted     = "product.deleted"
	ActionTaskCreated        = "voucher_task.created"
	ActionTaskUpdated        = "voucher_task.updated"
	ActionTaskDeactivated    = "voucher_task.deactivated"
	ActionAttemptApproved    = "task_attempt.approved"
	ActionAttemptRejected    = "task_attempt.rejected"
	ActionProductRequestSet  = "product_request.status_changed"
)

const (
	EntityUser           = "user"
	EntityProduct        = "product"
	EntityVoucherTask    = "voucher_task"
	EntityTaskAttempt    = "task_attempt"
	EntityProductRequest = "product_request"
)

// AuditLog is one recorded admin action.
type AuditLog struct {
	ID         int64           `json:"id"`
	ActorEmail string          `json:"actorEmail"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (l AuditLog) MarshalJSON() ([]byte, error) {
	type alias AuditLog
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
	}{alias(l), FormatTime(l.CreatedAt)})
}

// AuditFilters narrows audit log queries. Dates are inclusive. Unbounded
// lifts the default page cap; an explicit Limit still applies.
type AuditFilters struct {
	ActorEmail *string
	Action     *string
	EntityType *string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Unbounded  bool
}
