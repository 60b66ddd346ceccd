package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/streamlink/internal/decode"
)

func TestLatestCacheEmpty(t *testing.T) {
	c := NewLatestCache()
	_, ok := c.Get()
	require.False(t, ok)
}

func TestLatestCacheSetIsolatesWriter(t *testing.T) {
	c := NewLatestCache()
	sample := decode.Sample{"pose": map[string]any{"x": float64(1)}}
	c.Set(sample)

	// A mutating producer must not reach through into the slot.
	sample["pose"].(map[string]any)["x"] = float64(99)

	got, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, float64(1), got["pose"].(map[string]any)["x"])
}

func TestLatestCacheGetIsolatesReaders(t *testing.T) {
	c := NewLatestCache()
	c.Set(decode.Sample{"seq": float64(1)})

	first, _ := c.Get()
	first["seq"] = float64(42)

	second, _ := c.Get()
	require.Equal(t, float64(1), second["seq"])
}

func TestLatestCacheClear(t *testing.T) {
	c := NewLatestCache()
	c.Set(decode.Sample{"seq": float64(1)})
	c.Clear()

	_, ok := c.Get()
	require.False(t, ok)
}
