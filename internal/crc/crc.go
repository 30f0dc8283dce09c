// Package crc implements the two checksums used by the transport layer:
// CRC-16-CCITT-FALSE for CAN and serial headers/transfers, and CRC-32C
// (Castagnoli) for serial and UDP payloads.
package crc

import "hash/crc32"

// CRC16 is a running CRC-16-CCITT-FALSE accumulator (polynomial 0x1021,
// no reflection). The zero value is not a valid starting point for a
// transfer checksum; use NewCRC16 (or Initial) to get the 0xFFFF initial
// value mandated by the CAN and serial wire formats.
type CRC16 uint16

// Initial is the starting register value for a CRC-16-CCITT-FALSE transfer
// checksum.
const Initial CRC16 = 0xFFFF

// NewCRC16 returns a CRC16 accumulator primed with the initial value.
func NewCRC16() CRC16 {
	return Initial
}

// Single folds one byte into the accumulator.
func (c *CRC16) Single(b byte) {
	crc := *c
	crc ^= CRC16(b) << 8
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = (crc << 1) ^ 0x1021
		} else {
			crc <<= 1
		}
	}
	*c = crc
}

// Digest folds every byte of data into the accumulator.
func (c *CRC16) Digest(data []byte) {
	for _, b := range data {
		c.Single(b)
	}
}

// Value returns the current 16-bit checksum.
func (c CRC16) Value() uint16 {
	return uint16(c)
}

// Bytes returns the checksum as two big-endian bytes, matching the CAN
// and serial wire format's trailing CRC field.
func (c CRC16) Bytes() [2]byte {
	return [2]byte{byte(c >> 8), byte(c)}
}

// castagnoli is the CRC-32C table used for serial and UDP payload checksums.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC-32C (Castagnoli) checksum of data, as used for
// UAVCAN/serial and UAVCAN/UDP payload checksums.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}
