package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomStreamDeterministicAcrossResets(t *testing.T) {
	var r RandomStream

	first := make([]float32, 32)
	for i := range first {
		first[i] = r.Next()
	}

	r.Reset()
	for i := range first {
		assert.Equal(t, first[i], r.Next(), "sample %d diverged after reset", i)
	}
}

func TestRandomStreamRange(t *testing.T) {
	var r RandomStream
	for i := 0; i < 1000; i++ {
		v := r.Next()
		require.GreaterOrEqual(t, v, float32(0))
		require.Less(t, v, float32(1))
	}
}

func TestSliceToBytesLength(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	b := SliceToBytes(data)
	assert.Len(t, b, 16)
	assert.Nil(t, SliceToBytes([]float32(nil)))
}

func TestStructToBytesLength(t *testing.T) {
	v := struct {
		A [3]float32
		B float32
	}{}
	assert.Len(t, StructToBytes(&v), 16)
}
