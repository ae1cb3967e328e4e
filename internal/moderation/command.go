package moderation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind enumerates the supported command actions.
type Kind string

const (
	KindWarn          Kind = "warn"
	KindMute          Kind = "mute"
	KindUnmute        Kind = "unmute"
	KindKick          Kind = "kick"
	KindBan           Kind = "ban"
	KindUnban         Kind = "unban"
	KindPurge         Kind = "purge"
	KindLock          Kind = "lock"
	KindUnlock        Kind = "unlock"
	KindAssignRole    Kind = "assign_role"
	KindViewWarnings  Kind = "view_warnings"
	KindRemoveWarning Kind = "remove_warning"
	KindClearWarnings Kind = "clear_warnings"
)

const (
	minPurge = 1
	maxPurge = 100
)

// Request is the loosely structured action request as it arrives from the
// intake layer. ParseCommand turns it into a typed Command.
type Request struct {
	Kind   string                 `json:"kind"`
	Target string                 `json:"target,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Command is a validated action request. Params always holds the variant
// matching Kind.
type Command struct {
	Kind     Kind
	TenantID string
	// IssuedBy is the acting member, or SystemActorID for cascade actions.
	IssuedBy string
	// Target is the member ID once resolved, otherwise the raw reference.
	Target string
	Params Params
}

// Params is implemented by one struct per command kind.
type Params interface {
	kind() Kind
}

type WarnParams struct{ Reason string }

type MuteParams struct {
	Duration Duration
	Reason   string
}

type UnmuteParams struct{ Reason string }

type KickParams struct{ Reason string }

type BanParams struct {
	Reason string
	// Retention is how much recent message history the platform deletes.
	Retention Duration
}

type UnbanParams struct{ Reason string }

type PurgeParams struct {
	Channel string
	Amount  int
}

type LockParams struct {
	Channel string
	Reason  string
}

type UnlockParams struct {
	Channel string
	Reason  string
}

type AssignRoleParams struct{ Role string }

type ViewWarningsParams struct{}

type RemoveWarningParams struct{ WarningID uint }

type ClearWarningsParams struct{}

func (WarnParams) kind() Kind          { return KindWarn }
func (MuteParams) kind() Kind          { return KindMute }
func (UnmuteParams) kind() Kind        { return KindUnmute }
func (KickParams) kind() Kind          { return KindKick }
func (BanParams) kind() Kind           { return KindBan }
func (UnbanParams) kind() Kind         { return KindUnban }
func (PurgeParams) kind() Kind         { return KindPurge }
func (LockParams) kind() Kind          { return KindLock }
func (UnlockParams) kind() Kind        { return KindUnlock }
func (AssignRoleParams) kind() Kind    { return KindAssignRole }
func (ViewWarningsParams) kind() Kind  { return KindViewWarnings }
func (RemoveWarningParams) kind() Kind { return KindRemoveWarning }
func (ClearWarningsParams) kind() Kind { return KindClearWarnings }

type paramParser func(p paramBag) (Params, *Error)

var parsers = map[Kind]paramParser{
	KindWarn:   func(p paramBag) (Params, *Error) { return WarnParams{Reason: p.optString("reason")}, nil },
	KindUnmute: func(p paramBag) (Params, *Error) { return UnmuteParams{Reason: p.optString("reason")}, nil },
	KindKick:   func(p paramBag) (Params, *Error) { return KickParams{Reason: p.optString("reason")}, nil },
	KindUnban:  func(p paramBag) (Params, *Error) { return UnbanParams{Reason: p.optString("reason")}, nil },
	KindMute: func(p paramBag) (Params, *Error) {
		d, err := p.duration("duration", true)
		if err != nil {
			return nil, err
		}
		return MuteParams{Duration: d, Reason: p.optString("reason")}, nil
	},
	KindBan: func(p paramBag) (Params, *Error) {
		d, err := p.duration("retention", false)
		if err != nil {
			return nil, err
		}
		return BanParams{Reason: p.optString("reason"), Retention: d}, nil
	},
	KindPurge: func(p paramBag) (Params, *Error) {
		channel, err := p.reqString("channel")
		if err != nil {
			return nil, err
		}
		amount, err := p.integer("amount")
		if err != nil {
			return nil, err
		}
		if amount < minPurge || amount > maxPurge {
			return nil, invalid("amount must be between %d and %d", minPurge, maxPurge)
		}
		return PurgeParams{Channel: channel, Amount: int(amount)}, nil
	},
	KindLock: func(p paramBag) (Params, *Error) {
		channel, err := p.reqString("channel")
		if err != nil {
			return nil, err
		}
		return LockParams{Channel: channel, Reason: p.optString("reason")}, nil
	},
	KindUnlock: func(p paramBag) (Params, *Error) {
		channel, err := p.reqString("channel")
		if err != nil {
			return nil, err
		}
		return UnlockParams{Channel: channel, Reason: p.optString("reason")}, nil
	},
	KindAssignRole: func(p paramBag) (Params, *Error) {
		role, err := p.reqString("role")
		if err != nil {
			return nil, err
		}
		return AssignRoleParams{Role: role}, nil
	},
	KindViewWarnings:  func(p paramBag) (Params, *Error) { return ViewWarningsParams{}, nil },
	KindClearWarnings: func(p paramBag) (Params, *Error) { return ClearWarningsParams{}, nil },
	KindRemoveWarning: func(p paramBag) (Params, *Error) {
		id, err := p.integer("warning_id")
		if err != nil {
			return nil, err
		}
		if id <= 0 {
			return nil, invalid("warning_id must be positive")
		}
		return RemoveWarningParams{WarningID: uint(id)}, nil
	},
}

// ParseCommand performs shape validation: the kind must be known, a target
// must be present for kinds that act on a member, and every required
// parameter must be present and well typed.
func ParseCommand(req Request) (Command, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	parse, ok := parsers[kind]
	if !ok {
		return Command{}, invalid("unknown command kind %q", req.Kind)
	}

	target := strings.TrimSpace(req.Target)
	switch {
	case IsNoTarget(kind) && target != "":
		return Command{}, invalid("%s does not take a target", kind)
	case !IsNoTarget(kind) && target == "":
		return Command{}, invalid("%s requires a target", kind)
	}

	params, perr := parse(paramBag(req.Params))
	if perr != nil {
		return Command{}, perr
	}
	return Command{Kind: kind, Target: target, Params: params}, nil
}

// paramBag reads typed values out of an open key/value map. JSON numbers
// arrive as float64 or json.Number, so integers accept both plus digit strings.
type paramBag map[string]interface{}

func (p paramBag) optString(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}

func (p paramBag) reqString(key string) (string, *Error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", invalid("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("%s is required", key)
	}
	return s, nil
}

func (p paramBag) integer(key string) (int64, *Error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, invalid("%s is required", key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > math.MaxInt32 {
			return 0, invalid("%s must be an integer", key)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, invalid("%s must be an integer", key)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, invalid("%s must be an integer", key)
		}
		return i, nil
	}
	return 0, invalid("%s must be an integer", key)
}

func (p paramBag) duration(key string, required bool) (Duration, *Error) {
	v, ok := p[key]
	if !ok || v == nil || v == "" {
		if required {
			return Duration{}, invalid("%s is required", key)
		}
		return Duration{}, nil
	}
	s, ok := v.(string)
	if !ok {
		return Duration{}, invalid("%s must be a string like 10m", key)
	}
	d, err := ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return Duration{}, invalid("%s", err.Error())
	}
	return d, nil
}
