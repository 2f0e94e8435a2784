package ristretto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRistrettoUpstreamCache(t *testing.T) {
	cache, err := NewRistrettoUpstreamCache(time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	require.False(t, cache.IsDead("tcp://pool-a:4444"))

	cache.MarkDead("tcp://pool-a:4444")
	require.True(t, cache.IsDead("tcp://pool-a:4444"))
	require.False(t, cache.IsDead("tcp://pool-b:4444"))

	cache.MarkAlive("tcp://pool-a:4444")
	require.False(t, cache.IsDead("tcp://pool-a:4444"))
}

func TestRistrettoUpstreamCacheExpires(t *testing.T) {
	cache, err := NewRistrettoUpstreamCache(time.Second)
	require.NoError(t, err)
	defer cache.Close()

	cache.MarkDead("tcp://pool-a:4444")
	require.True(t, cache.IsDead("tcp://pool-a:4444"))

	require.Eventually(t, func() bool {
		return !cache.IsDead("tcp://pool-a:4444")
	}, 5*time.Second, 100*time.Millisecond)
}
