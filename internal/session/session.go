// Package session keeps per-user profile state between requests. Stores are
// constructed and injected; there is no package-level instance.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSession     = errors.New("no session for user")
	ErrMissingUserID = errors.New("user id is required")
)

// Profile is the working state of a signed-in user: which student and plan
// the coach has open.
type Profile struct {
	UserID             string    `json:"userId"`
	Role               string    `json:"role"`
	DisplayName        string    `json:"displayName,omitempty"`
	ActiveStudentID    string    `json:"activeStudentId,omitempty"`
	ActiveMacrocycleID string    `json:"activeMacrocycleId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Store has an explicit lifecycle: Save on login or profile change, Load per
// request, Clear on logout.
type Store interface {
	Load(ctx context.Context, userID string) (*Profile, error) // ErrNoSession if absent or expired
	Save(ctx context.Context, p *Profile) error
	Clear(ctx context.Context, userID string) error // Idempotent
}
