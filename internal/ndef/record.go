// Package ndef encodes and decodes NFC Data Exchange Format messages and the
// Type 2 tag TLV framing that carries them.
package ndef

// Type Name Format values (NFC Forum NDEF 1.0, §3.2.6).
const (
	TNFEmpty       = 0x00
	TNFWellKnown   = 0x01
	TNFMedia       = 0x02
	TNFAbsoluteURI = 0x03
	TNFExternal    = 0x04
	TNFUnknown     = 0x05
	TNFUnchanged   = 0x06
)

// Record header flag bits.
const (
	flagMB  = 0x80 // message begin
	flagME  = 0x40 // message end
	flagCF  = 0x20 // chunk flag
	flagSR  = 0x10 // short record
	flagIL  = 0x08 // ID length present
	tnfMask = 0x07
)

// MIME types used for vCard payloads on NFC tags.
const (
	MediaTypeVCard  = "text/vcard"
	MediaTypeXVCard = "text/x-vcard"
)

// Record is a single NDEF record.
type Record struct {
	TNF     byte
	Type    []byte
	ID      []byte
	Payload []byte
}

// MediaRecord builds a media-typed (TNF 0x02) record.
func MediaRecord(mediaType string, payload []byte) Record {
	return Record{
		TNF:     TNFMedia,
		Type:    []byte(mediaType),
		Payload: payload,
	}
}

// MediaType returns the record type as a string for media-typed records, and
// "" for every other TNF.
func (r Record) MediaType() string {
	if r.TNF != TNFMedia {
		return ""
	}
	return string(r.Type)
}

// IsVCard reports whether the record carries a vCard payload.
func (r Record) IsVCard() bool {
	mt := r.MediaType()
	return mt == MediaTypeVCard || mt == MediaTypeXVCard
}
