package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleScheduler(t *testing.T) {
	var s SimpleScheduler
	ok, limit := s.Plan(0, "r")
	assert.True(t, ok)
	assert.Zero(t, limit)
	assert.True(t, s.Observe(0, "r", 1_000_000))
	assert.True(t, s.CanStop(0))
}

func TestBackoffScheduler_BanAndDoubling(t *testing.T) {
	s := NewBackoffScheduler(WithMatchLimit(10), WithBanLength(2))

	ok, limit := s.Plan(0, "assoc")
	assert.True(t, ok)
	assert.Equal(t, 11, limit)

	assert.True(t, s.Observe(0, "assoc", 10), "at the threshold is fine")
	assert.False(t, s.Observe(1, "assoc", 11), "over the threshold bans")
	assert.Equal(t, 1, s.TimesBanned("assoc"))

	// Banned for iterations 1 and 2.
	assert.True(t, s.Banned(2, "assoc"))
	ok, _ = s.Plan(2, "assoc")
	assert.False(t, ok)

	ok, limit = s.Plan(3, "assoc")
	assert.True(t, ok)
	assert.Equal(t, 21, limit, "threshold doubles")

	// Second ban lasts twice as long.
	assert.False(t, s.Observe(3, "assoc", 21))
	assert.True(t, s.Banned(6, "assoc"))
	assert.False(t, s.Banned(7, "assoc"))
}

func TestBackoffScheduler_CanStopFastForwards(t *testing.T) {
	s := NewBackoffScheduler(WithMatchLimit(1), WithBanLength(5))
	s.Observe(0, "a", 2) // banned until 5
	s.Observe(0, "b", 2) // banned until 5
	s.Plan(0, "c")

	assert.False(t, s.CanStop(1), "banned rules block saturation")
	assert.False(t, s.Banned(2, "a"), "earliest ban now ends")
	assert.False(t, s.Banned(2, "b"))
	assert.True(t, s.CanStop(2))
}

func TestBackoffScheduler_RuleOverrides(t *testing.T) {
	s := NewBackoffScheduler(
		WithMatchLimit(1),
		WithRuleLimits("big", 100, 1),
		DoNotBan("free"),
	)

	_, limit := s.Plan(0, "big")
	assert.Equal(t, 101, limit)

	ok, limit := s.Plan(0, "free")
	assert.True(t, ok)
	assert.Zero(t, limit)
	assert.True(t, s.Observe(0, "free", 1_000_000))
	assert.Zero(t, s.TimesBanned("free"))
}
