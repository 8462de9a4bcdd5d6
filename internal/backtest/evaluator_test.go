package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateForward(t *testing.T) {
	t.Run("realized returns at chosen weights", func(t *testing.T) {
		r, err := EvaluateForward(5, series("A", 100, 104, 110), series("B", 50, 51, 49))
		require.NoError(t, err)
		assert.InDelta(t, 0.10, r.A, 1e-12)
		assert.InDelta(t, -0.02, r.B, 1e-12)
		assert.InDelta(t, 0.04, r.Portfolio, 1e-12)
	})

	t.Run("endpoints follow one asset", func(t *testing.T) {
		a, b := series("A", 100, 120), series("B", 50, 45)
		r, err := EvaluateForward(10, a, b)
		require.NoError(t, err)
		assert.Equal(t, r.A, r.Portfolio)
		r, err = EvaluateForward(0, a, b)
		require.NoError(t, err)
		assert.Equal(t, r.B, r.Portfolio)
	})

	t.Run("empty window is zero", func(t *testing.T) {
		r, err := EvaluateForward(7, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, Returns{}, r)
	})

	t.Run("window past the end of history is zero", func(t *testing.T) {
		a, b := series("A", 1, 2, 3), series("B", 3, 2, 1)
		r, err := EvaluateForward(4, slice(a, 5, 8), slice(b, 5, 8))
		require.NoError(t, err)
		assert.Equal(t, Returns{}, r)
	})

	t.Run("single day is zero return", func(t *testing.T) {
		r, err := EvaluateForward(4, series("A", 100), series("B", 50))
		require.NoError(t, err)
		assert.Equal(t, Returns{}, r)
	})

	t.Run("misaligned", func(t *testing.T) {
		b := series("B", 50, 51)
		b[1].Date = b[1].Date.AddDate(0, 0, 3)
		_, err := EvaluateForward(4, series("A", 100, 101), b)
		assert.ErrorIs(t, err, ErrMisalignedWindows)
	})

	t.Run("step outside grid", func(t *testing.T) {
		_, err := EvaluateForward(11, series("A", 100, 101), series("B", 50, 51))
		assert.Error(t, err)
	})
}
