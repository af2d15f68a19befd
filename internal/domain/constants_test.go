package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUserAgent_CarriesAppVersion(t *testing.T) {
	previous := AppVersion
	AppVersion = "1.2.3"
	t.Cleanup(func() { AppVersion = previous })

	agent := DefaultUserAgent()
	assert.Equal(t, "composer/1.2.3", agent)

	parsed, err := ParseVersion(AppVersion)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3}, parsed)
}
