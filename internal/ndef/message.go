package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage  = errors.New("ndef: message has no records")
	ErrChunkedRecord = errors.New("ndef: chunked records are not supported")
	ErrTruncated     = errors.New("ndef: message truncated")
)

// EncodeMessage serializes records into an NDEF message. The first record
// gets the MB flag, the last the ME flag. Payloads under 256 bytes use the
// short-record form.
func EncodeMessage(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmptyMessage
	}
	var out []byte
	for i, r := range records {
		if len(r.Type) > 0xFF {
			return nil, fmt.Errorf("ndef: record %d type too long (%d bytes)", i, len(r.Type))
		}
		if len(r.ID) > 0xFF {
			return nil, fmt.Errorf("ndef: record %d id too long (%d bytes)", i, len(r.ID))
		}

		header := r.TNF & tnfMask
		if i == 0 {
			header |= flagMB
		}
		if i == len(records)-1 {
			header |= flagME
		}
		short := len(r.Payload) < 0x100
		if short {
			header |= flagSR
		}
		if len(r.ID) > 0 {
			header |= flagIL
		}

		out = append(out, header, byte(len(r.Type)))
		if short {
			out = append(out, byte(len(r.Payload)))
		} else {
			out = binary.BigEndian.AppendUint32(out, uint32(len(r.Payload)))
		}
		if len(r.ID) > 0 {
			out = append(out, byte(len(r.ID)))
		}
		out = append(out, r.Type...)
		out = append(out, r.ID...)
		out = append(out, r.Payload...)
	}
	return out, nil
}

// DecodeMessage parses an NDEF message, consuming records until one carries
// the ME flag. Chunked records are rejected.
func DecodeMessage(data []byte) ([]Record, error) {
	var records []Record
	i := 0
	for {
		if i >= len(data) {
			return nil, ErrTruncated
		}
		header := data[i]
		if header&flagCF != 0 {
			return nil, ErrChunkedRecord
		}
		i++

		if i >= len(data) {
			return nil, ErrTruncated
		}
		typeLen := int(data[i])
		i++

		var payloadLen int
		if header&flagSR != 0 {
			if i >= len(data) {
				return nil, ErrTruncated
			}
			payloadLen = int(data[i])
			i++
		} else {
			if i+4 > len(data) {
				return nil, ErrTruncated
			}
			payloadLen = int(binary.BigEndian.Uint32(data[i : i+4]))
			i += 4
		}

		idLen := 0
		if header&flagIL != 0 {
			if i >= len(data) {
				return nil, ErrTruncated
			}
			idLen = int(data[i])
			i++
		}

		if i+typeLen+idLen+payloadLen > len(data) {
			return nil, ErrTruncated
		}
		r := Record{TNF: header & tnfMask}
		if typeLen > 0 {
			r.Type = append([]byte(nil), data[i:i+typeLen]...)
		}
		i += typeLen
		if idLen > 0 {
			r.ID = append([]byte(nil), data[i:i+idLen]...)
		}
		i += idLen
		if payloadLen > 0 {
			r.Payload = append([]byte(nil), data[i:i+payloadLen]...)
		}
		i += payloadLen

		records = append(records, r)
		if header&flagME != 0 {
			return records, nil
		}
	}
}
