// Package tag describes the Type 2 NFC tags nfcard knows how to address.
//
// A Type 2 tag exposes its memory as fixed-size pages. Pages below
// UserPageStart hold the UID, lock bits and capability container; pages from
// UserPageStart up to (but not including) UserPageLimit are user memory where
// the NDEF TLV area lives.
package tag

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Tag holds the memory geometry of a known tag type.
type Tag struct {
	Name          string
	ATR           []byte
	BytesPerPage  int
	UserPageStart int
	UserPageLimit int // exclusive
}

// Capacity returns the number of user-memory bytes available for NDEF data.
func (t Tag) Capacity() int {
	return (t.UserPageLimit - t.UserPageStart) * t.BytesPerPage
}

// MatchesATR reports whether the card's answer-to-reset identifies this tag
// family. The NTAG 213/215/216 variants share one ATR, so a match does not
// pin down the capacity; that comes from configuration.
func (t Tag) MatchesATR(atr []byte) bool {
	return len(t.ATR) > 0 && bytes.Equal(t.ATR, atr)
}

// ntagATR is the PC/SC ATR reported for the NTAG21x family behind an
// ACR122U (ISO 14443-3 Type A, MIFARE Ultralight card name).
var ntagATR = []byte{
	0x3B, 0x8F, 0x80, 0x01, 0x80, 0x4F, 0x0C, 0xA0, 0x00, 0x00,
	0x03, 0x06, 0x03, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x68,
}

// Geometry values from the NXP NTAG213/215/216 datasheet.
var known = map[string]Tag{
	"ntag213": {Name: "ntag213", ATR: ntagATR, BytesPerPage: 4, UserPageStart: 4, UserPageLimit: 40},
	"ntag215": {Name: "ntag215", ATR: ntagATR, BytesPerPage: 4, UserPageStart: 4, UserPageLimit: 130},
	"ntag216": {Name: "ntag216", ATR: ntagATR, BytesPerPage: 4, UserPageStart: 4, UserPageLimit: 226},
}

// ByName looks up a tag type by its (case-insensitive) name.
func ByName(name string) (Tag, error) {
	t, ok := known[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Tag{}, fmt.Errorf("tag: unknown tag type %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names returns the known tag type names, sorted.
func Names() []string {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known returns all known tag types, sorted by name.
func Known() []Tag {
	tags := make([]Tag, 0, len(known))
	for _, name := range Names() {
		tags = append(tags, known[name])
	}
	return tags
}
