package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixed []float64

func (f *fixed) Float64() float64 {
	v := (*f)[0]
	*f = (*f)[1:]
	return v
}

func TestSeededSourcesRepeat(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestIntRangeInclusive(t *testing.T) {
	src := New(1)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := IntRange(src, 3, 6)
		require.GreaterOrEqual(t, v, 3)
		require.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 5, IntRange(src, 5, 5))
}

func TestWeighted(t *testing.T) {
	src := &fixed{0.0, 0.29, 0.31, 0.999}
	weights := []float64{0.3, 0.5, 0.2}
	assert.Equal(t, 0, Weighted(src, weights))
	assert.Equal(t, 0, Weighted(src, weights))
	assert.Equal(t, 1, Weighted(src, weights))
	assert.Equal(t, 2, Weighted(src, weights))
}

func TestUniformBounds(t *testing.T) {
	src := New(99)
	for i := 0; i < 1000; i++ {
		v := Uniform(src, -10, 10)
		require.GreaterOrEqual(t, v, -10.0)
		require.Less(t, v, 10.0)
	}
}

func TestReaderRepeatsForSeed(t *testing.T) {
	a, b := make([]byte, 64), make([]byte, 64)
	n, err := Reader(New(11)).Read(a)
	require.NoError(t, err)
	require.Equal(t, 64, n)
	_, err = Reader(New(11)).Read(b)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	edge := fixed{0, 0.999999}
	out := make([]byte, 2)
	_, err = Reader(&edge).Read(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255}, out)
}
