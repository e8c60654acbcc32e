package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	assert.Equal(t, 4, Rank(Admin))
	assert.Equal(t, 3, Rank(Executive))
	assert.Equal(t, 3, Rank(Finance))
	assert.Equal(t, 1, Rank(Student))
	assert.Equal(t, 0, Rank(Role("ROLE_UNKNOWN")))
	assert.Equal(t, 0, Rank(Role("")))
}

func TestHasRequiredRole(t *testing.T) {
	known := []Role{Admin, Executive, Finance, Student}

	// rank comparison must hold for every pair, including unknown roles
	all := append([]Role{Role("ROLE_UNKNOWN")}, known...)
	for _, user := range all {
		for _, required := range all {
			expected := Rank(user) >= Rank(required)
			assert.Equalf(t, expected, HasRequiredRole(user, required),
				"user=%s required=%s", user, required)
		}
	}
}

func TestHasRequiredRolePairs(t *testing.T) {
	tests := []struct {
		user     Role
		required Role
		want     bool
	}{
		{Admin, Admin, true},
		{Admin, Student, true},
		{Executive, Finance, true}, // equal rank
		{Finance, Executive, true}, // equal rank
		{Finance, Admin, false},
		{Student, Finance, false},
		{Role("ROLE_UNKNOWN"), Student, false},
		{Student, Role("ROLE_UNKNOWN"), true}, // unknown requirement ranks 0
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, HasRequiredRole(tt.user, tt.required),
			"user=%s required=%s", tt.user, tt.required)
	}
}

func TestDerivedChecks(t *testing.T) {
	assert.True(t, IsAdmin(Admin))
	assert.False(t, IsAdmin(Executive))

	assert.True(t, IsFinanceOrAbove(Admin))
	assert.True(t, IsFinanceOrAbove(Executive))
	assert.True(t, IsFinanceOrAbove(Finance))
	assert.False(t, IsFinanceOrAbove(Student))
	assert.False(t, IsFinanceOrAbove(Role("ROLE_UNKNOWN")))

	assert.True(t, Known(Admin))
	assert.True(t, Known(Executive))
	assert.True(t, Known(Finance))
	assert.True(t, Known(Student))
	assert.False(t, Known(Role("ROLE_UNKNOWN")))
	assert.False(t, Known(Role("")))
}
