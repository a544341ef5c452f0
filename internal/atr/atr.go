// Package atr parses ISO 7816-3 Answer To Reset sequences.
package atr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTooShort  = errors.New("atr: need at least TS and T0")
	ErrTruncated = errors.New("atr: truncated interface or historical bytes")
)

// InterfaceByte is one TA/TB/TC/TD byte with its position in the chain,
// e.g. "TD1" or "TA2".
type InterfaceByte struct {
	Name  string
	Value byte
}

// ATR is a parsed Answer To Reset.
type ATR struct {
	Raw        []byte
	TS         byte
	T0         byte
	Interface  []InterfaceByte
	Historical []byte
	TCK        byte
	HasTCK     bool

	protocols map[int]bool
}

// Parse decodes a raw ATR. The checksum byte, when present, is captured but
// not enforced; callers decide via ChecksumOK.
func Parse(raw []byte) (*ATR, error) {
	if len(raw) < 2 {
		return nil, ErrTooShort
	}
	a := &ATR{
		Raw:       append([]byte(nil), raw...),
		TS:        raw[0],
		T0:        raw[1],
		protocols: make(map[int]bool),
	}
	if a.TS != 0x3B && a.TS != 0x3F {
		return nil, fmt.Errorf("atr: invalid TS byte 0x%02X", a.TS)
	}

	histLen := int(a.T0 & 0x0F)
	y := a.T0 >> 4
	i := 2
	level := 1
	sawTD := false

	for y != 0 {
		var td byte
		hasTD := false
		for _, slot := range [...]struct {
			mask byte
			kind byte
		}{{0x1, 'A'}, {0x2, 'B'}, {0x4, 'C'}, {0x8, 'D'}} {
			if y&slot.mask == 0 {
				continue
			}
			if i >= len(raw) {
				return nil, ErrTruncated
			}
			v := raw[i]
			i++
			a.Interface = append(a.Interface, InterfaceByte{
				Name:  fmt.Sprintf("T%c%d", slot.kind, level),
				Value: v,
			})
			if slot.kind == 'D' {
				td = v
				hasTD = true
			}
		}
		if !hasTD {
			break
		}
		sawTD = true
		a.protocols[int(td&0x0F)] = true
		y = td >> 4
		level++
	}

	// With no TD1 the card implicitly offers T=0 only.
	if !sawTD {
		a.protocols[0] = true
	}

	if i+histLen > len(raw) {
		return nil, ErrTruncated
	}
	a.Historical = append([]byte(nil), raw[i:i+histLen]...)
	i += histLen

	// TCK is present unless T=0 is the only indicated protocol.
	if len(a.protocols) > 1 || !a.protocols[0] {
		if i >= len(raw) {
			return nil, ErrTruncated
		}
		a.TCK = raw[i]
		a.HasTCK = true
	}

	return a, nil
}

// SupportsProtocol reports whether the ATR indicates protocol T=n.
func (a *ATR) SupportsProtocol(n int) bool {
	return a.protocols[n]
}

// ChecksumOK reports whether the TCK byte validates. An ATR without a TCK
// (only T=0 indicated) is considered valid.
func (a *ATR) ChecksumOK() bool {
	if !a.HasTCK {
		return true
	}
	var sum byte
	for _, b := range a.Raw[1:] { // T0 through TCK
		sum ^= b
	}
	return sum == 0
}

// HexString renders bytes as space-separated uppercase hex, the way
// smart-card tooling prints them.
func HexString(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}

func (a *ATR) String() string {
	return HexString(a.Raw)
}

// Describe renders a multi-line human-readable summary for the info command.
func (a *ATR) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ATR: %s\n", a)
	convention := "direct"
	if a.TS == 0x3F {
		convention = "inverse"
	}
	fmt.Fprintf(&sb, "Convention: %s\n", convention)
	for _, ib := range a.Interface {
		fmt.Fprintf(&sb, "%s: 0x%02X\n", ib.Name, ib.Value)
	}
	fmt.Fprintf(&sb, "Historical bytes: %s\n", HexString(a.Historical))
	for _, n := range []int{0, 1, 15} {
		fmt.Fprintf(&sb, "T=%d supported: %v\n", n, a.SupportsProtocol(n))
	}
	if a.HasTCK {
		fmt.Fprintf(&sb, "Checksum: 0x%02X (valid: %v)\n", a.TCK, a.ChecksumOK())
	} else {
		sb.WriteString("Checksum: absent\n")
	}
	return sb.String()
}
