package flowz

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestBracketStack(t *testing.T) {
	t.Run("balanced substream", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindOpen, DefaultChannel)))
		assert.Equal(t, 1, s.depth())
		assert.NoError(t, s.apply(Control(KindClose, DefaultChannel)))
		assert.Equal(t, 0, s.depth())
	})

	t.Run("close on empty stack", func(t *testing.T) {
		var s bracketStack
		err := s.apply(Control(KindClose, DefaultChannel))
		assert.True(t, errors.Is(err, ErrUnbalancedClose))
	})

	t.Run("map close does not match substream open", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindOpen, DefaultChannel)))
		err := s.apply(Control(KindMapClose, DefaultChannel))
		assert.True(t, errors.Is(err, ErrUnbalancedMapClose))
	})

	t.Run("substream close does not match map open", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindMapOpen, DefaultChannel)))
		err := s.apply(Control(KindClose, DefaultChannel))
		assert.True(t, errors.Is(err, ErrUnbalancedClose))
	})

	t.Run("switch outside map", func(t *testing.T) {
		var s bracketStack
		err := s.apply(SwitchTo(DefaultChannel, "num"))
		assert.True(t, errors.Is(err, ErrSwitchOutsideMap))
	})

	t.Run("switch inside substream is not inside map", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindOpen, DefaultChannel)))
		err := s.apply(SwitchTo(DefaultChannel, "num"))
		assert.True(t, errors.Is(err, ErrSwitchOutsideMap))
	})

	t.Run("switch sets active namespace", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindMapOpen, DefaultChannel)))
		assert.NoError(t, s.apply(SwitchTo(DefaultChannel, "num")))
		assert.Equal(t, "num", s.top().namespace)

		// Re-selecting the active namespace is a no-op.
		assert.NoError(t, s.apply(SwitchTo(DefaultChannel, "num")))
		assert.Equal(t, "num", s.top().namespace)
	})

	t.Run("nested map namespaces do not leak", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindMapOpen, DefaultChannel)))
		assert.NoError(t, s.apply(SwitchTo(DefaultChannel, "outer")))
		assert.NoError(t, s.apply(Control(KindMapOpen, DefaultChannel)))
		assert.NoError(t, s.apply(SwitchTo(DefaultChannel, "inner")))
		assert.NoError(t, s.apply(Control(KindMapClose, DefaultChannel)))
		assert.Equal(t, "outer", s.top().namespace)
	})

	t.Run("substream nests inside map and map inside substream", func(t *testing.T) {
		var s bracketStack
		assert.NoError(t, s.apply(Control(KindOpen, DefaultChannel)))
		assert.NoError(t, s.apply(Control(KindMapOpen, DefaultChannel)))
		assert.NoError(t, s.apply(SwitchTo(DefaultChannel, "a")))
		assert.NoError(t, s.apply(Control(KindOpen, DefaultChannel)))
		assert.NoError(t, s.apply(Control(KindClose, DefaultChannel)))
		assert.NoError(t, s.apply(Control(KindMapClose, DefaultChannel)))
		assert.NoError(t, s.apply(Control(KindClose, DefaultChannel)))
		assert.Equal(t, 0, s.depth())
	})

	t.Run("depth limit", func(t *testing.T) {
		var s bracketStack
		for i := 0; i < maxBracketDepth; i++ {
			assert.NoError(t, s.apply(Control(KindOpen, DefaultChannel)))
		}
		err := s.apply(Control(KindOpen, DefaultChannel))
		assert.True(t, errors.Is(err, ErrBracketDepth))
	})
}
