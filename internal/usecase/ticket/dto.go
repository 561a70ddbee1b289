package ticket

import (
	domain "ticketdesk/internal/domain/ticket"
)

// CreateRequest represents a ticket draft. Status and priority must name one
// of the enumerated values; the title must be non-empty after trimming.
type CreateRequest struct {
	Title       string          `validate:"required,max=200"`
	Description string          `validate:"max=2000"`
	Status      domain.Status   `validate:"required,oneof=open in_progress closed"`
	Priority    domain.Priority `validate:"required,oneof=low medium high"`
}

// UpdateRequest carries a partial update: each field is independently present
// or absent, and only present fields are merged into the stored ticket.
type UpdateRequest struct {
	Title       *string          `validate:"omitempty,max=200"`
	Description *string          `validate:"omitempty,max=2000"`
	Status      *domain.Status   `validate:"omitempty,oneof=open in_progress closed"`
	Priority    *domain.Priority `validate:"omitempty,oneof=low medium high"`
}
