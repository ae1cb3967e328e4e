package moderation

// Capability is a named permission an actor holds within a tenant.
type Capability string

const (
	CapModerateMembers Capability = "ModerateMembers"
	CapKickMembers     Capability = "KickMembers"
	CapBanMembers      Capability = "BanMembers"
	CapManageMessages  Capability = "ManageMessages"
	CapManageChannels  Capability = "ManageChannels"
	CapManageRoles     Capability = "ManageRoles"
	// CapAdministrator satisfies every capability requirement.
	CapAdministrator Capability = "Administrator"
)

// KnownCapabilities lists every capability the matrix refers to.
var KnownCapabilities = []Capability{
	CapModerateMembers,
	CapKickMembers,
	CapBanMembers,
	CapManageMessages,
	CapManageChannels,
	CapManageRoles,
	CapAdministrator,
}

// IsKnownCapability reports whether name is a capability the matrix uses.
func IsKnownCapability(name string) bool {
	for _, c := range KnownCapabilities {
		if string(c) == name {
			return true
		}
	}
	return false
}

type requirement struct {
	// anyOf is a disjunction of capability sets; holding every member of
	// one set satisfies the requirement.
	anyOf [][]Capability
	// noTarget kinds skip the hierarchy check entirely.
	noTarget bool
}

var warningReview = [][]Capability{{CapModerateMembers}, {CapManageMessages}}

var permissionMatrix = map[Kind]requirement{
	KindWarn:          {anyOf: [][]Capability{{CapModerateMembers}}},
	KindMute:          {anyOf: [][]Capability{{CapModerateMembers}}},
	KindUnmute:        {anyOf: [][]Capability{{CapModerateMembers}}},
	KindKick:          {anyOf: [][]Capability{{CapKickMembers}}},
	KindBan:           {anyOf: [][]Capability{{CapBanMembers}}},
	KindUnban:         {anyOf: [][]Capability{{CapBanMembers}}},
	KindPurge:         {anyOf: [][]Capability{{CapManageMessages}}, noTarget: true},
	KindLock:          {anyOf: [][]Capability{{CapManageChannels}}, noTarget: true},
	KindUnlock:        {anyOf: [][]Capability{{CapManageChannels}}, noTarget: true},
	KindAssignRole:    {anyOf: [][]Capability{{CapManageRoles}}},
	KindViewWarnings:  {anyOf: warningReview},
	KindRemoveWarning: {anyOf: warningReview},
	KindClearWarnings: {anyOf: warningReview},
}

// selfAssignable is the only kind an actor may aim at themselves.
const selfAssignable = KindAssignRole

// RequiredCapabilities returns the acceptable capability sets for kind.
func RequiredCapabilities(kind Kind) [][]Capability {
	return permissionMatrix[kind].anyOf
}

// IsNoTarget reports whether kind bypasses the hierarchy check.
func IsNoTarget(kind Kind) bool {
	return permissionMatrix[kind].noTarget
}

func satisfies(a *Actor, anyOf [][]Capability) bool {
	if a.Has(CapAdministrator) {
		return true
	}
	for _, set := range anyOf {
		if len(set) == 0 {
			continue
		}
		ok := true
		for _, c := range set {
			if !a.Has(c) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
