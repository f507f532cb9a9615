package utils

import (
	"regexp"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

var localPartPattern = regexp.MustCompile(`^[a-z]+[0-9]{1,3}$`)

func TestGenerateRandomIdentity(t *testing.T) {
	for range 50 {
		identity := GenerateRandomIdentity("hash", "example.com")

		require.NotNil(t, identity.DisplayName)
		n := utf8.RuneCountInString(*identity.DisplayName)
		assert.True(t, n >= 2 && n <= 3, *identity.DisplayName)

		local, domainName, ok := cutEmail(identity.Email)
		require.True(t, ok, identity.Email)
		assert.Equal(t, "example.com", domainName)
		assert.Regexp(t, localPartPattern, local)
		assert.Empty(t, identity.ID)
		assert.Empty(t, identity.Role)
	}
}

func TestGenerateRandomStatusIsValid(t *testing.T) {
	for range 50 {
		assert.True(t, GenerateRandomStatus().Valid())
	}
	assert.Len(t, statuses, 3)
	assert.Contains(t, statuses, domain.StatusApproved)
}

func cutEmail(email string) (string, string, bool) {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[:i], email[i+1:], true
		}
	}
	return "", "", false
}
