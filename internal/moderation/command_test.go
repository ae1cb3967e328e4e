package moderation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]int64{
		"30s": 30_000,
		"10m": 600_000,
		"2h":  7_200_000,
		"7d":  604_800_000,
		"0s":  0,
	}
	for spec, want := range cases {
		d, err := ParseDuration(spec)
		require.NoError(t, err, spec)
		assert.Equal(t, want, d.Millis, spec)
		assert.Equal(t, time.Duration(want)*time.Millisecond, d.Std())
		assert.Equal(t, spec, d.String())
	}

	for _, bad := range []string{"", "10", "m", "10w", "1.5h", "-5m", " 5m", "5m ", "99999999999999999999d", "200000d"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCommand_KnownKinds(t *testing.T) {
	cmd, err := ParseCommand(Request{Kind: "Mute", Target: "u1", Params: map[string]interface{}{"duration": "10m", "reason": "spam"}})
	require.NoError(t, err)
	assert.Equal(t, KindMute, cmd.Kind)
	p := cmd.Params.(MuteParams)
	assert.Equal(t, int64(600_000), p.Duration.Millis)
	assert.Equal(t, "spam", p.Reason)

	cmd, err = ParseCommand(Request{Kind: "purge", Params: map[string]interface{}{"channel": "c1", "amount": float64(50)}})
	require.NoError(t, err)
	assert.Equal(t, PurgeParams{Channel: "c1", Amount: 50}, cmd.Params)

	cmd, err = ParseCommand(Request{Kind: "remove_warning", Target: "u1", Params: map[string]interface{}{"warning_id": json.Number("12")}})
	require.NoError(t, err)
	assert.Equal(t, RemoveWarningParams{WarningID: 12}, cmd.Params)

	cmd, err = ParseCommand(Request{Kind: "ban", Target: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), cmd.Params.(BanParams).Retention.Millis)

	cmd, err = ParseCommand(Request{Kind: "warn", Target: "u1"})
	require.NoError(t, err)
	assert.Equal(t, WarnParams{}, cmd.Params)
}

func TestParseCommand_ShapeErrors(t *testing.T) {
	cases := map[string]Request{
		"unknown kind":          {Kind: "explode", Target: "u1"},
		"missing target":        {Kind: "kick"},
		"target on no-target":   {Kind: "lock", Target: "u1", Params: map[string]interface{}{"channel": "c"}},
		"mute without duration": {Kind: "mute", Target: "u1"},
		"mute bad duration":     {Kind: "mute", Target: "u1", Params: map[string]interface{}{"duration": "10 minutes"}},
		"mute numeric duration": {Kind: "mute", Target: "u1", Params: map[string]interface{}{"duration": 10}},
		"purge zero":            {Kind: "purge", Params: map[string]interface{}{"channel": "c", "amount": 0}},
		"purge 101":             {Kind: "purge", Params: map[string]interface{}{"channel": "c", "amount": "101"}},
		"purge fractional":      {Kind: "purge", Params: map[string]interface{}{"channel": "c", "amount": 2.5}},
		"purge text":            {Kind: "purge", Params: map[string]interface{}{"channel": "c", "amount": "lots"}},
		"purge no channel":      {Kind: "purge", Params: map[string]interface{}{"amount": 5}},
		"assign no role":        {Kind: "assign_role", Target: "u1"},
		"remove no id":          {Kind: "remove_warning", Target: "u1"},
		"remove negative id":    {Kind: "remove_warning", Target: "u1", Params: map[string]interface{}{"warning_id": -3}},
		"ban bad retention":     {Kind: "ban", Target: "u1", Params: map[string]interface{}{"retention": "1y"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCommand(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCommand)
		})
	}
}

func TestParseCommand_PurgeBounds(t *testing.T) {
	for _, n := range []int{1, 100} {
		_, err := ParseCommand(Request{Kind: "purge", Params: map[string]interface{}{"channel": "c", "amount": n}})
		assert.NoError(t, err)
	}
}

func TestErrorMatching(t *testing.T) {
	err := error(&Error{Code: CodeOwnerProtected, Message: "nope"})
	assert.ErrorIs(t, err, ErrOwnerProtected)
	assert.NotErrorIs(t, err, ErrInsufficientRank)
	assert.Equal(t, CodeOwnerProtected, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(assert.AnError))
	assert.True(t, (&Error{Code: CodeTransient}).Retryable())
	assert.NotEmpty(t, (&Error{Code: CodeAdapterForbidden}).Hint())
}
