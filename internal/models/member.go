package models

import (
	"sort"
	"strings"
	"time"
)

// Member is the directory snapshot of a user inside one tenant. Rows are
// synced from the platform bridge and also created as stubs the first time
// someone is warned so every warning references an existing member.
type Member struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	TenantID    string `json:"tenant_id" gorm:"uniqueIndex:idx_members_tenant_user;not null"`
	UserID      string `json:"user_id" gorm:"uniqueIndex:idx_members_tenant_user;not null"`
	DisplayName string `json:"display_name" gorm:"index"`
	// Rank is the position of the member's highest role; higher is more senior.
	Rank int `json:"rank" gorm:"default:0"`
	// Capabilities is a comma separated list of capability names.
	Capabilities string    `json:"capabilities"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CapabilityNames splits the stored capability list.
func (m *Member) CapabilityNames() []string {
	if strings.TrimSpace(m.Capabilities) == "" {
		return nil
	}
	parts := strings.Split(m.Capabilities, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetCapabilityNames stores names deduplicated and sorted.
func (m *Member) SetCapabilityNames(names []string) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	m.Capabilities = strings.Join(out, ",")
}
