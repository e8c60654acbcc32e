package emailutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "user@example.com", Normalize("  User@Example.COM "))
	assert.Equal(t, "", Normalize("   "))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("user@example.com"))
	assert.Equal(t, "example.com", ExtractDomain(`"odd@local"@example.com`))
	assert.Equal(t, "", ExtractDomain("no-at-sign"))
	assert.Equal(t, "", ExtractDomain("@example.com"))
	assert.Equal(t, "", ExtractDomain("user@"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("user@example.com"))
	assert.False(t, Valid("user@localhost"))
	assert.False(t, Valid("user"))
	assert.False(t, Valid(""))
}
