// Package command encodes outbound control messages for the device.
//
// The wire shape is one command-type byte, a 4-byte payload and a CRLF
// terminator. The payload is a little-endian float32 for setpoint-style
// commands or a big-endian int32 for mode-style commands; the firmware
// selects the interpretation by command type. Device information is
// requested with a bare textual command.
package command

import (
	"encoding/binary"
	"math"
)

// Type identifies an outbound device command.
type Type byte

const (
	terminator = "\r\n"

	// DeviceInfoRequest asks the firmware for its identity block.
	DeviceInfoRequest = "GET_INFO" + terminator

	payloadLen = 4
	wireLen    = 1 + payloadLen + len(terminator)
)

// EncodeFloat builds the wire form of a float-valued command. The
// payload is little-endian IEEE 754.
func EncodeFloat(t Type, value float32) []byte {
	buf := make([]byte, wireLen)
	buf[0] = byte(t)
	binary.LittleEndian.PutUint32(buf[1:1+payloadLen], math.Float32bits(value))
	copy(buf[1+payloadLen:], terminator)
	return buf
}

// EncodeInt builds the wire form of an integer-valued command. The
// payload is big-endian two's complement.
func EncodeInt(t Type, value int32) []byte {
	buf := make([]byte, wireLen)
	buf[0] = byte(t)
	binary.BigEndian.PutUint32(buf[1:1+payloadLen], uint32(value))
	copy(buf[1+payloadLen:], terminator)
	return buf
}
