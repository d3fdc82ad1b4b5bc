// Package session binds the task store's lifecycle to an authenticated
// identity. The identity provider itself is an external collaborator; the
// gating state machine here decides when a store may exist and for whom.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Session carries the stable subject identifier plus display attributes.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// IdentityProvider is the surface consumed from the identity collaborator.
// CurrentSession returns nil without error when nobody is signed in.
type IdentityProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(*Session)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// Navigator receives the gate's routing decisions. Redirects are collaborator
// territory; the gate only decides that one must happen.
type Navigator interface {
	ToDashboard(userID uuid.UUID)
	ToSignIn()
}

// ErrSignedOut reports that no session exists; the caller must send the user
// to the unauthenticated entry point.
var ErrSignedOut = errors.New("no active session")

// MismatchError reports that the session's subject does not own the routed
// context. Subject is the identity the caller must redirect to; no load was
// issued against the routed owner.
type MismatchError struct {
	Subject uuid.UUID
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("session belongs to %s, not the routed owner", e.Subject)
}
