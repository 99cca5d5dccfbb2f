package gallery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigator_NextCyclesBackToStart(t *testing.T) {
	for _, length := range []int{2, 3, 7} {
		for start := 0; start < length; start++ {
			nav := Navigator{}
			require.NoError(t, nav.JumpTo(start, length))

			for range length {
				nav.Next(length)
			}
			assert.Equal(t, start, nav.Index(), "length %d start %d", length, start)
		}
	}
}

func TestNavigator_PreviousWraps(t *testing.T) {
	nav := Navigator{}
	assert.Equal(t, 2, nav.Previous(3))
	assert.Equal(t, 1, nav.Previous(3))
	assert.Equal(t, 2, nav.Next(3))
	assert.Equal(t, 0, nav.Next(3))
}

func TestNavigator_SingleImageIsNoop(t *testing.T) {
	for _, length := range []int{0, 1} {
		nav := Navigator{}
		assert.Equal(t, 0, nav.Next(length))
		assert.Equal(t, 0, nav.Previous(length))
	}
}

func TestNavigator_JumpToOutOfRange(t *testing.T) {
	nav := Navigator{}
	require.NoError(t, nav.JumpTo(1, 3))

	for _, i := range []int{-1, 3, 10} {
		err := nav.JumpTo(i, 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfRange))
		assert.Equal(t, 1, nav.Index(), "failed jump must not move the index")
	}

	assert.ErrorIs(t, nav.JumpTo(0, 0), ErrOutOfRange)
}
