package instancestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_AddGetRemove(t *testing.T) {
	s := New[string]("stsg_opt_")

	id := s.Add("hello")
	require.NotEmpty(t, id)
	require.Contains(t, id, "stsg_opt_")

	v, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, "hello", v)

	s.Remove(id)
	_, ok = s.Get(id)
	require.False(t, ok)
}

func TestStore_HandlesAreProcessUniqueNeverRecycled(t *testing.T) {
	s := New[int]("stsg_usr_")

	first := s.Add(1)
	s.Remove(first)
	second := s.Add(2)

	require.NotEqual(t, first, second)
}

func TestStore_CapacityExceededReturnsEmpty(t *testing.T) {
	s := New[int]("stsg_x_")
	s.capacity = 2

	require.NotEmpty(t, s.Add(1))
	require.NotEmpty(t, s.Add(2))
	require.Empty(t, s.Add(3))
	require.Equal(t, 2, s.Len())
}
