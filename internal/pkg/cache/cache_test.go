package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := client
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client = prev })
	return mr
}

func TestJSONRoundTripAndMiss(t *testing.T) {
	mr := setupMiniredis(t)

	type payload struct {
		Count int `json:"count"`
	}
	var out payload
	assert.ErrorIs(t, GetJSON("report:1", &out), ErrMiss)

	require.NoError(t, SetJSON("report:1", payload{Count: 3}, time.Minute))
	require.NoError(t, GetJSON("report:1", &out))
	assert.Equal(t, 3, out.Count)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, GetJSON("report:1", &out), ErrMiss)
}

func TestSetNXAndDeletePattern(t *testing.T) {
	setupMiniredis(t)

	ok, err := SetNX("reminder:1", "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = SetNX("reminder:1", "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Set("report:7:summary", "x", time.Minute))
	require.NoError(t, Set("report:7:monthly", "y", time.Minute))
	n, err := DeletePattern("report:7:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
