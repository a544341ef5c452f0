// Package reader drives NDEF reads and writes on Type 2 tags through an
// ACR122U-class PC/SC reader.
package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nfcard/internal/apdu"
	"nfcard/internal/ndef"
	"nfcard/internal/tag"
)

var (
	ErrEmptyTag        = errors.New("reader: tag has no ndef message")
	ErrMessageTooLarge = errors.New("reader: message does not fit in tag user memory")
)

// Card is an established connection to a tag.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	ATR() []byte
	Disconnect() error
}

// Connector produces card connections as tags arrive at the reader.
type Connector interface {
	WaitForCard(ctx context.Context) (Card, error)
	Release() error
}

// Reader reads and writes NDEF messages using a fixed tag geometry.
type Reader struct {
	conn Connector
	tag  tag.Tag
	log  *zap.Logger
}

func New(conn Connector, t tag.Tag, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{conn: conn, tag: t, log: log}
}

// withCard waits for a card, runs fn with a session-scoped logger and always
// disconnects afterwards.
func (r *Reader) withCard(ctx context.Context, fn func(card Card, log *zap.Logger) error) error {
	card, err := r.conn.WaitForCard(ctx)
	if err != nil {
		return err
	}
	log := r.log.With(
		zap.String("session", uuid.NewString()[:8]),
		zap.String("tag", r.tag.Name),
	)
	log.Debug("card connected", zap.String("atr", fmt.Sprintf("% X", card.ATR())))
	defer func() {
		if err := card.Disconnect(); err != nil {
			log.Warn("disconnect failed", zap.Error(err))
		}
	}()
	return fn(card, log)
}

// ReadMessage waits for a card and returns the NDEF message found in its
// user memory. An empty or unformatted tag yields ErrEmptyTag.
func (r *Reader) ReadMessage(ctx context.Context) ([]ndef.Record, error) {
	var records []ndef.Record
	err := r.withCard(ctx, func(card Card, log *zap.Logger) error {
		var err error
		records, err = r.readMessage(card, log)
		return err
	})
	return records, err
}

// readMessage scans the TLV area incrementally: pages are only read as the
// scan needs them, and the buffer is extended when a TLV header or body runs
// past what has been fetched so far.
func (r *Reader) readMessage(card Card, log *zap.Logger) ([]ndef.Record, error) {
	var buf []byte
	nextPage := r.tag.UserPageStart

	// fill buffers at least n bytes, best effort until user memory ends.
	fill := func(n int) error {
		for len(buf) < n && nextPage < r.tag.UserPageLimit {
			chunk, page, err := r.readBytes(card, nextPage, n-len(buf), log)
			if err != nil {
				return err
			}
			nextPage = page
			if len(chunk) == 0 {
				break
			}
			buf = append(buf, chunk...)
		}
		return nil
	}

	i := 0
	for {
		if err := fill(i + 1); err != nil {
			return nil, err
		}
		if i >= len(buf) {
			return nil, ErrEmptyTag
		}
		switch buf[i] {
		case ndef.TLVNull:
			i++
		case ndef.TLVTerminator:
			return nil, ErrEmptyTag
		case ndef.TLVNDEF:
			if err := fill(i + 4); err != nil {
				return nil, err
			}
			length, err := ndef.TLVLength(buf[i:])
			if err != nil {
				return nil, err
			}
			hdr := ndef.TLVHeaderLen(buf[i+1])
			if err := fill(i + hdr + length); err != nil {
				return nil, err
			}
			if len(buf) < i+hdr+length {
				return nil, ndef.ErrTruncated
			}
			log.Debug("found ndef tlv", zap.Int("offset", i), zap.Int("length", length))
			return ndef.DecodeMessage(buf[i+hdr : i+hdr+length])
		default:
			// Lock-control and other TLV blocks carry their own length byte.
			if err := fill(i + 2); err != nil {
				return nil, err
			}
			if i+1 >= len(buf) {
				return nil, ndef.ErrTruncated
			}
			i += 2 + int(buf[i+1])
		}
	}
}

// WriteMessage waits for a card and writes the message into user memory,
// TLV-framed and padded to a whole page.
func (r *Reader) WriteMessage(ctx context.Context, records []ndef.Record) error {
	encoded, err := ndef.EncodeMessage(records)
	if err != nil {
		return err
	}
	framed, err := ndef.WrapTLV(encoded)
	if err != nil {
		return err
	}
	if rem := len(framed) % r.tag.BytesPerPage; rem != 0 {
		framed = append(framed, make([]byte, r.tag.BytesPerPage-rem)...)
	}
	if len(framed) > r.tag.Capacity() {
		return fmt.Errorf("%w: need %d bytes, %s has %d",
			ErrMessageTooLarge, len(framed), r.tag.Name, r.tag.Capacity())
	}

	return r.withCard(ctx, func(card Card, log *zap.Logger) error {
		log.Debug("writing message", zap.Int("bytes", len(framed)))
		return r.writeBytes(card, r.tag.UserPageStart, framed, log)
	})
}

// Dump waits for a card and returns its raw user memory.
func (r *Reader) Dump(ctx context.Context) ([]byte, error) {
	var data []byte
	err := r.withCard(ctx, func(card Card, log *zap.Logger) error {
		var err error
		data, _, err = r.readBytes(card, r.tag.UserPageStart, r.tag.Capacity(), log)
		if len(data) > r.tag.Capacity() {
			data = data[:r.tag.Capacity()]
		}
		return err
	})
	return data, err
}

// CardATR waits for a card and returns its answer-to-reset.
func (r *Reader) CardATR(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := r.withCard(ctx, func(card Card, _ *zap.Logger) error {
		raw = append([]byte(nil), card.ATR()...)
		return nil
	})
	return raw, err
}

// readBytes reads at least length bytes starting at page using 16-byte READ
// BINARY commands, returning whole chunks so the returned page cursor always
// matches the data. Requests are clamped at the end of user memory.
func (r *Reader) readBytes(card Card, page, length int, log *zap.Logger) ([]byte, int, error) {
	if page >= r.tag.UserPageLimit {
		return nil, page, nil
	}
	if avail := (r.tag.UserPageLimit - page) * r.tag.BytesPerPage; length > avail {
		log.Debug("clamping read at end of user memory",
			zap.Int("requested", length), zap.Int("available", avail))
		length = avail
	}

	pagesPerRead := apdu.MaxReadLength / r.tag.BytesPerPage
	var data []byte
	for len(data) < length {
		resp, err := r.transmit(card, apdu.ReadBinary(byte(page), apdu.MaxReadLength))
		if err != nil {
			return nil, page, fmt.Errorf("reader: reading page %d: %w", page, err)
		}
		data = append(data, resp.Data...)
		page += pagesPerRead
	}
	return data, page, nil
}

// writeBytes writes data page by page starting at page; data must be a
// multiple of the page size.
func (r *Reader) writeBytes(card Card, page int, data []byte, log *zap.Logger) error {
	bpp := r.tag.BytesPerPage
	for off := 0; off < len(data); off += bpp {
		if _, err := r.transmit(card, apdu.UpdateBinary(byte(page), data[off:off+bpp])); err != nil {
			return fmt.Errorf("reader: writing page %d: %w", page, err)
		}
		page++
	}
	log.Debug("wrote user memory", zap.Int("bytes", len(data)))
	return nil
}

func (r *Reader) transmit(card Card, cmd apdu.Command) (apdu.Response, error) {
	raw, err := card.Transmit(cmd)
	if err != nil {
		return apdu.Response{}, fmt.Errorf("reader: transmit failed: %w", err)
	}
	resp, err := apdu.ParseResponse(raw)
	if err != nil {
		return apdu.Response{}, err
	}
	if err := resp.Err(); err != nil {
		return apdu.Response{}, err
	}
	return resp, nil
}
