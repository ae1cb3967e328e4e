package moderation

import (
	"context"
	"errors"
	"fmt"
)

// Decision is the outcome of a successful authorization.
type Decision struct {
	// Command is validated and bound to the actor's tenant. Its Target is
	// the resolved member ID when resolution succeeded.
	Command Command
	// Target is the resolved member snapshot, nil for no-target kinds or
	// when the reference did not resolve.
	Target *Actor
}

// Authorizer runs the gates a user-initiated command must pass before it
// reaches the executor. It has no side effects; the same snapshot always
// yields the same decision.
type Authorizer struct {
	directory Directory
}

// NewAuthorizer builds an Authorizer that resolves targets through dir.
func NewAuthorizer(dir Directory) *Authorizer {
	return &Authorizer{directory: dir}
}

// Authorize validates req for actor. A nil error means Allowed; otherwise the
// error is an *Error whose Code names the first gate that failed.
func (a *Authorizer) Authorize(ctx context.Context, actor *Actor, req Request) (Decision, error) {
	if actor == nil {
		return Decision{}, &Error{Code: CodePermissionDenied, Message: "acting member could not be identified"}
	}

	cmd, err := ParseCommand(req)
	if err != nil {
		return Decision{}, err
	}
	cmd.TenantID = actor.TenantID
	cmd.IssuedBy = actor.ID

	anyOf := RequiredCapabilities(cmd.Kind)
	if !satisfies(actor, anyOf) {
		return Decision{}, denied(cmd.Kind, anyOf)
	}

	if IsNoTarget(cmd.Kind) {
		return Decision{Command: cmd}, nil
	}

	target, err := a.resolveTarget(ctx, actor.TenantID, cmd.Target)
	if err != nil {
		return Decision{}, err
	}
	if target == nil {
		// Unresolved targets are left for the executor's not-found handling.
		return Decision{Command: cmd}, nil
	}
	cmd.Target = target.ID

	if err := checkHierarchy(actor, target, cmd.Kind); err != nil {
		return Decision{}, err
	}
	return Decision{Command: cmd, Target: target}, nil
}

func (a *Authorizer) resolveTarget(ctx context.Context, tenantID, ref string) (*Actor, error) {
	if a.directory == nil {
		return nil, nil
	}
	target, err := a.directory.Resolve(ctx, tenantID, ref)
	switch {
	case err == nil:
		return target, nil
	case errors.Is(err, ErrActorNotFound):
		return nil, nil
	case errors.Is(err, ErrAmbiguousRef):
		return nil, invalid("target %q matches more than one member; use their ID", ref)
	default:
		// A directory outage must not let a command skip the rank check.
		return nil, &Error{Code: CodeTransient, Message: "member directory is unavailable", Err: err}
	}
}

func checkHierarchy(actor, target *Actor, kind Kind) error {
	if target.ID == actor.ID {
		if kind == selfAssignable {
			return nil
		}
		return &Error{Code: CodeSelfActionForbidden, Message: fmt.Sprintf("you cannot %s yourself", kind)}
	}
	if target.IsOwner && !actor.IsOwner {
		return &Error{Code: CodeOwnerProtected, Message: "the server owner cannot be targeted"}
	}
	if actor.IsOwner {
		return nil
	}
	if actor.Rank <= target.Rank {
		return &Error{
			Code:    CodeInsufficientRank,
			Message: fmt.Sprintf("your highest role must be above %s's", displayName(target)),
		}
	}
	return nil
}

func displayName(a *Actor) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ID
}
