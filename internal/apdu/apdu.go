// Package apdu frames the ISO 7816-4 command/response pairs the ACR122U
// understands for Type 2 tag memory access.
package apdu

import (
	"errors"
	"fmt"
)

// Success is the SW1 SW2 status word pair for a completed command.
const (
	SW1Success = 0x90
	SW2Success = 0x00
)

// ACR122U pseudo-APDU opcodes for contactless storage cards.
const (
	classPseudo     = 0xFF
	insReadBinary   = 0xB0
	insUpdateBinary = 0xD6
	MaxReadLength   = 16 // bytes per READ BINARY on the ACR122U
)

// Command is a serialized command APDU.
type Command []byte

// ReadBinary builds a READ BINARY command for length bytes starting at page.
func ReadBinary(page byte, length byte) Command {
	return Command{classPseudo, insReadBinary, 0x00, page, length}
}

// UpdateBinary builds an UPDATE BINARY command writing data at page. Type 2
// tags accept exactly one page per write.
func UpdateBinary(page byte, data []byte) Command {
	cmd := make(Command, 0, 5+len(data))
	cmd = append(cmd, classPseudo, insUpdateBinary, 0x00, page, byte(len(data)))
	return append(cmd, data...)
}

// Response is a parsed response APDU.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

var errShortResponse = errors.New("apdu: response shorter than the status word")

// ParseResponse splits a raw response into payload and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, errShortResponse
	}
	r := Response{
		SW1: raw[len(raw)-2],
		SW2: raw[len(raw)-1],
	}
	if len(raw) > 2 {
		r.Data = append([]byte(nil), raw[:len(raw)-2]...)
	}
	return r, nil
}

// OK reports whether the status word signals success.
func (r Response) OK() bool {
	return r.SW1 == SW1Success && r.SW2 == SW2Success
}

// Err returns nil on success and a *StatusError otherwise.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{SW1: r.SW1, SW2: r.SW2}
}

// StatusError is a non-success status word returned by the card.
type StatusError struct {
	SW1 byte
	SW2 byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apdu: card returned status %02X %02X", e.SW1, e.SW2)
}
