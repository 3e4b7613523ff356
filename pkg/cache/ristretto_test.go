package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetDel(t *testing.T) {
	c, err := NewCache(100, 0)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1)
	c.Wait()
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Del("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_SetWithTTL(t *testing.T) {
	c, err := NewCache(100, 60)
	require.NoError(t, err)
	defer c.Close()

	c.SetWithTTL("model/1", "cfg")
	c.Wait()
	v, ok := c.Get("model/1")
	require.True(t, ok)
	assert.Equal(t, "cfg", v)

	c.Clear()
	_, ok = c.Get("model/1")
	assert.False(t, ok)
}

func TestNewCache_NonPositiveSize(t *testing.T) {
	c, err := NewCache(0, 0)
	require.NoError(t, err)
	assert.NotNil(t, c)
	c.Close()
}
