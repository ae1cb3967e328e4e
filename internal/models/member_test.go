package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMember_CapabilityNames(t *testing.T) {
	m := &Member{}
	assert.Nil(t, m.CapabilityNames())

	m.SetCapabilityNames([]string{"BanMembers", " ModerateMembers", "BanMembers", ""})
	assert.Equal(t, "BanMembers,ModerateMembers", m.Capabilities)
	assert.Equal(t, []string{"BanMembers", "ModerateMembers"}, m.CapabilityNames())
}
