package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCOBSRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		{0x00},
		{0x01, 0x02, 0x03},
		{0x00, 0x00, 0x00},
		{0x11, 0x22, 0x00, 0x33},
	}
	for _, data := range cases {
		encoded := Encode(data)
		for _, b := range encoded {
			assert.NotEqual(t, byte(0), b, "COBS output must never contain a zero byte")
		}
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}
}

func TestCOBSLongRun(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i + 1) // never zero
	}
	encoded := Encode(data)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEscapedSizeIsConservativeBound(t *testing.T) {
	cases := []int{0, 1, 10, 253, 254, 255, 1000}
	for _, n := range cases {
		data := make([]byte, n)
		encoded := Encode(data)
		assert.LessOrEqual(t, len(encoded), EscapedSize(n))
	}
}
