package common

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePositiveInt(t *testing.T) {
	v, ok := ParsePositiveInt(" 7 ", 1)
	require.True(t, ok)
	require.Equal(t, 7, v)

	for _, raw := range []string{"", "0", "-2", "abc"} {
		v, ok := ParsePositiveInt(raw, 3)
		require.False(t, ok, raw)
		require.Equal(t, 3, v)
	}
}

func TestPageParams(t *testing.T) {
	page, limit := PageParams(url.Values{"page": {"2"}, "limit": {"x"}}, 20)
	require.Equal(t, 2, page)
	require.Equal(t, 20, limit)
}
