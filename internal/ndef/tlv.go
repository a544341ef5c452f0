package ndef

import (
	"encoding/binary"
	"fmt"
)

// Type 2 tag TLV block types (NFC Forum Type 2 Tag Operation, §2.3).
const (
	TLVNull       = 0x00
	TLVNDEF       = 0x03
	TLVTerminator = 0xFE
)

// maxShortTLVLength is the largest value length expressible in the one-byte
// form; 0xFF escapes to the three-byte big-endian form.
const maxShortTLVLength = 0xFE

// WrapTLV frames an encoded NDEF message as an NDEF TLV followed by a
// terminator TLV, ready to be written to user memory.
func WrapTLV(message []byte) ([]byte, error) {
	if len(message) > 0xFFFF {
		return nil, fmt.Errorf("ndef: message of %d bytes exceeds the TLV length field", len(message))
	}
	out := make([]byte, 0, len(message)+5)
	out = append(out, TLVNDEF)
	if len(message) > maxShortTLVLength {
		out = append(out, 0xFF)
		out = binary.BigEndian.AppendUint16(out, uint16(len(message)))
	} else {
		out = append(out, byte(len(message)))
	}
	out = append(out, message...)
	out = append(out, TLVTerminator)
	return out, nil
}

// TLVHeaderLen returns how many bytes the NDEF TLV header occupies given the
// length byte that follows the type byte.
func TLVHeaderLen(lengthByte byte) int {
	if lengthByte == 0xFF {
		return 4
	}
	return 2
}

// TLVLength decodes the value length of an NDEF TLV whose type byte sits at
// buf[0]. It requires the full header to be present.
func TLVLength(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, ErrTruncated
	}
	if buf[1] != 0xFF {
		return int(buf[1]), nil
	}
	if len(buf) < 4 {
		return 0, ErrTruncated
	}
	return int(binary.BigEndian.Uint16(buf[2:4])), nil
}
