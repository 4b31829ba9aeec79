package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
)

// User is an account that can hold credentials and role assignments.
// TenantID is nil for system accounts (platform staff), which live in
// the system tenant and are visible from every tenant scope.
type User struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserContext is the authenticated caller handed to the business layer.
// Info is always populated; downstream code never probes optional
// fields to discover privileges.
type UserContext struct {
	UserID   uuid.UUID        `json:"user_id"`
	Username string           `json:"username"`
	TenantID *uuid.UUID       `json:"tenant_id,omitempty"`
	Info     accesslevel.Info `json:"info"`
}
