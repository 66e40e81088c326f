package models

import (
	"time"

	"github.com/google/uuid"
)

// Wildcard matches any domain or action in a routing policy
const Wildcard = "*"

// RoutingPolicy maps a classified (domain, action) pair to an ordered
// list of preferred candidate models. Unique per (domain, action).
type RoutingPolicy struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Domain    string    `json:"domain" db:"domain"`
	Action    string    `json:"action" db:"action"`
	Models    []string  `json:"models" db:"models"` // Ordered, most preferred first
	Priority  int       `json:"priority" db:"priority"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the RoutingPolicy model
func (RoutingPolicy) TableName() string {
	return "routing_policies"
}

// NewRoutingPolicy creates a new RoutingPolicy instance
func NewRoutingPolicy(domain, action string, modelIDs []string, priority int) *RoutingPolicy {
	now := time.Now()
	return &RoutingPolicy{
		ID:        uuid.New(),
		Domain:    domain,
		Action:    action,
		Models:    modelIDs,
		Priority:  priority,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsWildcardDomain reports whether the policy matches any domain
func (p *RoutingPolicy) IsWildcardDomain() bool {
	return p.Domain == Wildcard
}

// IsWildcardAction reports whether the policy matches any action
func (p *RoutingPolicy) IsWildcardAction() bool {
	return p.Action == Wildcard
}
