package moderation

import (
	"context"
	"errors"
)

// SystemActorID identifies commands the cascade issues on its own authority.
const SystemActorID = "system:automod"

var (
	// ErrActorNotFound is returned by a Directory when ref matches nobody.
	ErrActorNotFound = errors.New("actor not found")
	// ErrAmbiguousRef is returned when a display-name ref matches several members.
	ErrAmbiguousRef = errors.New("reference matches more than one member")
)

// Actor is a point-in-time snapshot of a member inside one tenant.
type Actor struct {
	ID           string
	TenantID     string
	DisplayName  string
	Capabilities []Capability
	Rank         int
	IsOwner      bool
}

// Has reports whether the actor holds c directly.
func (a *Actor) Has(c Capability) bool {
	for _, held := range a.Capabilities {
		if held == c {
			return true
		}
	}
	return false
}

// Directory resolves a stable ID or a display-name fallback to a member
// snapshot of tenantID.
type Directory interface {
	Resolve(ctx context.Context, tenantID, ref string) (*Actor, error)
}
