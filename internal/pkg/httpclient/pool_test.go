//go:build unit

package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetReusesClientForSameOptions(t *testing.T) {
	t.Parallel()

	options := Options{Timeout: 10 * time.Second, UserAgent: "test-agent", FollowRedirects: true}
	first := Get(options)
	second := Get(options)
	require.Same(t, first, second)
}

func TestGetSeparatesClientsByOptions(t *testing.T) {
	t.Parallel()

	a := Get(Options{Timeout: 10 * time.Second, FollowRedirects: true})
	b := Get(Options{Timeout: 20 * time.Second, FollowRedirects: true})
	require.NotSame(t, a, b)
}

func TestNormalizedAppliesDefaultTimeout(t *testing.T) {
	t.Parallel()

	got := Options{}.normalized()
	require.Equal(t, 30*time.Second, got.Timeout)
}
