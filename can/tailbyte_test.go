package can

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyphal-go/transport/transport"
)

func TestTailByteRoundTrip(t *testing.T) {
	cases := []struct {
		sot, eot, toggle bool
		tid              transport.CANTransferID
	}{
		{true, true, true, 0},
		{true, false, true, 17},
		{false, false, false, 31},
		{false, true, true, 16},
	}
	for _, c := range cases {
		b := tailByte(c.sot, c.eot, c.toggle, c.tid)
		sot, eot, toggle, tid := parseTailByte(b)
		assert.Equal(t, c.sot, sot)
		assert.Equal(t, c.eot, eot)
		assert.Equal(t, c.toggle, toggle)
		assert.Equal(t, c.tid, tid)
	}
}

func TestTailByteSingleFrameBits(t *testing.T) {
	b := tailByte(true, true, true, 5)
	assert.Equal(t, byte(0b11100101), b)
}
