package serial

import "fmt"

// delimiter is the frame boundary byte; COBS guarantees Encode's output
// never contains it, whatever zero bytes the original data holds (spec.md
// §4.7, §8 invariant 4).
const delimiter = 0x00

// maxBlock is the longest run of non-zero bytes a single COBS code byte
// can describe.
const maxBlock = 0xFF

// EscapedSize returns the worst-case COBS-encoded length of n raw bytes,
// per spec.md §4.7 ("Encoded length = raw_length + ceil(raw_length/254) +
// 1"). The transmitter uses this as a conservative pre-check before
// actually encoding, then re-checks against the real encoded length.
func EscapedSize(n int) int {
	return n + (n+253)/254 + 1
}

// Encode COBS-stuffs data, producing a byte sequence with no embedded
// zero bytes. The caller is responsible for the leading/trailing 0x00
// frame delimiters.
func Encode(data []byte) []byte {
	out := make([]byte, 0, EscapedSize(len(data)))
	codeIdx := 0
	out = append(out, 0)
	code := byte(1)
	flush := func() {
		out[codeIdx] = code
		codeIdx = len(out)
		out = append(out, 0)
		code = 1
	}
	for _, b := range data {
		if b == delimiter {
			flush()
			continue
		}
		out = append(out, b)
		code++
		if code == maxBlock {
			flush()
		}
	}
	out[codeIdx] = code
	return out
}

// Decode reverses Encode. It returns an error if data is not a
// well-formed COBS sequence (a zero byte appears where only a code byte
// is expected, or a code byte's run overruns the buffer).
func Decode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		code := data[i]
		if code == delimiter {
			return nil, fmt.Errorf("cobs: unexpected zero byte at offset %d", i)
		}
		i++
		end := i + int(code) - 1
		if end > len(data) {
			return nil, fmt.Errorf("cobs: code byte %d at offset %d overruns buffer", code, i-1)
		}
		out = append(out, data[i:end]...)
		i = end
		if code != maxBlock && i < len(data) {
			out = append(out, delimiter)
		}
	}
	return out, nil
}
