package repository

import (
	"time"

	"github.com/pesio-ai/be-brand-navigator/internal/status"
)

// Brand is the wizard's unit of work. CurrentStatus is the only lifecycle
// state; route and step are always derived from it.
type Brand struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"owner_id"`
	Name          string             `json:"name"`
	CurrentStatus status.BrandStatus `json:"current_status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// History actions.
const (
	ActionCreated    = "created"
	ActionProgressed = "progressed"
	ActionReverted   = "reverted"
)

// StatusHistoryEntry is one immutable record of a status change.
type StatusHistoryEntry struct {
	ID           string              `json:"id"`
	BrandID      string              `json:"brand_id"`
	Action       string              `json:"action"`
	StatusBefore *status.BrandStatus `json:"status_before,omitempty"`
	StatusAfter  status.BrandStatus  `json:"status_after"`
	PerformedBy  string              `json:"performed_by"`
	PerformedAt  time.Time           `json:"performed_at"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// ListFilter narrows ListBrands.
type ListFilter struct {
	OwnerID string
	Status  *status.BrandStatus
	Limit   int
	Offset  int
}
