package main

import (
	"testing"

	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMembers(t *testing.T) {
	members, err := parseMembers([]string{
		"0x00000000000000000000000000000000000000aa:5",
		"00000000000000000000000000000000000000bb:0",
	})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Member{
		{Address: interfaces.Address{19: 0xaa}, Weight: 5},
		{Address: interfaces.Address{19: 0xbb}, Weight: 0},
	}, members)

	for _, bad := range []string{
		"0x00000000000000000000000000000000000000aa",
		"0x00aa:1",
		"0x00000000000000000000000000000000000000aa:-1",
		"0x00000000000000000000000000000000000000aa:18446744073709551616",
	} {
		_, err := parseMembers([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseAddresses(t *testing.T) {
	addrs, err := parseAddresses([]string{"0x00000000000000000000000000000000000000cc"})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Address{{19: 0xcc}}, addrs)

	_, err = parseAddresses([]string{"nothex"})
	assert.Error(t, err)
}
