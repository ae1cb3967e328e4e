package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// RuleAction is the punitive action an auto-moderation rule applies.
type RuleAction string

const (
	RuleActionMute RuleAction = "mute"
	RuleActionKick RuleAction = "kick"
	RuleActionBan  RuleAction = "ban"
)

var durationSpecRegex = regexp.MustCompile(`^(\d+)([smhd])$`)

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// AutoModRule maps a warning count in a tenant to an automatic action.
// (tenant_id, threshold) is unique; writes go through an upsert.
type AutoModRule struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TenantID  string     `json:"tenant_id" gorm:"uniqueIndex:idx_automod_tenant_threshold;not null"`
	Threshold int        `json:"threshold" gorm:"uniqueIndex:idx_automod_tenant_threshold;not null"`
	Action    RuleAction `json:"action" gorm:"not null"`
	// Duration is the mute length for mute rules and the message retention
	// window for ban rules. Empty for kick.
	Duration  string    `json:"duration"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the rule invariants before it is stored.
func (r *AutoModRule) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant is required")
	}
	if r.Threshold <= 0 {
		return errors.New("threshold must be a positive integer")
	}
	switch r.Action {
	case RuleActionMute, RuleActionBan:
		if err := validateDurationSpec(r.Duration); err != nil {
			return err
		}
	case RuleActionKick:
		if r.Duration != "" {
			return errors.New("kick rules do not take a duration")
		}
	default:
		return errors.New("action must be one of mute, kick, ban")
	}
	return nil
}

// validateDurationSpec accepts the same specs the executor can apply, so a
// stored rule never fails to parse when it fires.
func validateDurationSpec(spec string) error {
	m := durationSpecRegex.FindStringSubmatch(spec)
	if m == nil {
		return errors.New("duration must look like 10m, 2h or 7d for mute and ban rules")
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n > math.MaxInt64/int64(durationUnits[m[2]]) {
		return fmt.Errorf("duration %q is out of range", spec)
	}
	return nil
}
