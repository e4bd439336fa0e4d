package cimxterm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCIMUUIDDashedLowerCase(t *testing.T) {
	n := NormalizeCIMUUID("f67fc354-9e39-4191-a456-67537399bc48")
	assert.True(t, n.Matched)
	assert.Equal(t, "urn:uuid:f67fc354-9e39-4191-a456-67537399bc48", n.IRI)
	assert.False(t, n.UpperCase)
	assert.False(t, n.DashesInserted)
}

func TestNormalizeCIMUUIDDashedUpperCaseWarns(t *testing.T) {
	n := NormalizeCIMUUID("F67FC354-9E39-4191-A456-67537399BC48")
	assert.True(t, n.Matched)
	assert.Equal(t, "urn:uuid:f67fc354-9e39-4191-a456-67537399bc48", n.IRI)
	assert.True(t, n.UpperCase)
}

func TestNormalizeCIMUUIDUndashedInsertsDashes(t *testing.T) {
	n := NormalizeCIMUUID("abcdef0123456789abcdef0123456789")
	assert.True(t, n.Matched)
	assert.Equal(t, "urn:uuid:abcdef01-2345-6789-abcd-ef0123456789", n.IRI)
	assert.True(t, n.DashesInserted)
}

func TestNormalizeCIMUUIDUnmatchedFallsBack(t *testing.T) {
	n := NormalizeCIMUUID("not-a-uuid")
	assert.False(t, n.Matched)
}

func TestStripCIMIDPrefix(t *testing.T) {
	assert.Equal(t, "abc", StripCIMIDPrefix("#_abc"))
	assert.Equal(t, "abc", StripCIMIDPrefix("_abc"))
	assert.Equal(t, "abc", StripCIMIDPrefix("abc"))
}
