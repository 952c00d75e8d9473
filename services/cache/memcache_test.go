package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a memcached on localhost:11211; skipped otherwise.
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	require.NoError(t, mc.Set("reklama5_test_key", []byte("test_value"), 5*time.Second))

	value, err := mc.Get("reklama5_test_key")
	require.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	require.NoError(t, mc.Delete("reklama5_test_key"))
	require.NoError(t, mc.Delete("reklama5_test_key"))

	_, err = mc.Get("reklama5_test_key")
	assert.ErrorIs(t, err, ErrMiss)
}
