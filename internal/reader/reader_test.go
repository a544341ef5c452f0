package reader

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nfcard/internal/apdu"
	"nfcard/internal/ndef"
	"nfcard/internal/tag"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCard emulates the ACR122U READ/UPDATE BINARY pseudo-APDUs over an
// in-memory NTAG page array.
type fakeCard struct {
	mem          []byte
	bytesPerPage int
	failReads    bool
	disconnected bool
}

func newFakeCard(t tag.Tag) *fakeCard {
	// A few pages of headroom past user memory, like a real tag's
	// configuration pages, so chunked reads near the end stay in bounds.
	return &fakeCard{
		mem:          make([]byte, (t.UserPageLimit+4)*t.BytesPerPage),
		bytesPerPage: t.BytesPerPage,
	}
}

func (c *fakeCard) load(t tag.Tag, content []byte) {
	copy(c.mem[t.UserPageStart*t.BytesPerPage:], content)
}

func (c *fakeCard) user(t tag.Tag) []byte {
	start := t.UserPageStart * t.BytesPerPage
	return c.mem[start : start+t.Capacity()]
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	if len(cmd) < 5 {
		return nil, errors.New("short apdu")
	}
	page := int(cmd[3])
	switch cmd[1] {
	case 0xB0: // READ BINARY
		if c.failReads {
			return []byte{0x63, 0x00}, nil
		}
		out := make([]byte, int(cmd[4]))
		if start := page * c.bytesPerPage; start < len(c.mem) {
			copy(out, c.mem[start:])
		}
		return append(out, 0x90, 0x00), nil
	case 0xD6: // UPDATE BINARY
		data := cmd[5:]
		start := page * c.bytesPerPage
		if len(data) != c.bytesPerPage || start+len(data) > len(c.mem) {
			return []byte{0x6A, 0x82}, nil
		}
		copy(c.mem[start:], data)
		return []byte{0x90, 0x00}, nil
	}
	return []byte{0x6D, 0x00}, nil
}

func (c *fakeCard) ATR() []byte {
	tg, _ := tag.ByName("ntag216")
	return tg.ATR
}

func (c *fakeCard) Disconnect() error {
	c.disconnected = true
	return nil
}

type fakeConnector struct {
	card Card
	err  error
	wait bool // block until the context is done
}

func (c *fakeConnector) WaitForCard(ctx context.Context) (Card, error) {
	if c.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.card, nil
}

func (c *fakeConnector) Release() error { return nil }

func ntag216(t *testing.T) tag.Tag {
	t.Helper()
	tg, err := tag.ByName("ntag216")
	require.NoError(t, err)
	return tg
}

func framedMessage(t *testing.T, records []ndef.Record) []byte {
	t.Helper()
	encoded, err := ndef.EncodeMessage(records)
	require.NoError(t, err)
	framed, err := ndef.WrapTLV(encoded)
	require.NoError(t, err)
	return framed
}

func TestReadMessage(t *testing.T) {
	tg := ntag216(t)
	want := []ndef.Record{ndef.MediaRecord(ndef.MediaTypeXVCard, []byte("BEGIN:VCARD\nFN:Ada\nEND:VCARD\n"))}

	card := newFakeCard(tg)
	card.load(tg, framedMessage(t, want))

	r := New(&fakeConnector{card: card}, tg, nil)
	got, err := r.ReadMessage(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].Payload, got[0].Payload)
	assert.True(t, card.disconnected)
}

func TestReadMessage_SkipsLeadingTLVs(t *testing.T) {
	tg := ntag216(t)
	want := []ndef.Record{ndef.MediaRecord(ndef.MediaTypeVCard, []byte("x"))}

	// Null TLVs and a lock-control TLV (0x01, length 3) before the message.
	prefix := []byte{0x00, 0x00, 0x01, 0x03, 0xAA, 0xBB, 0xCC}
	card := newFakeCard(tg)
	card.load(tg, append(prefix, framedMessage(t, want)...))

	r := New(&fakeConnector{card: card}, tg, nil)
	got, err := r.ReadMessage(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("x"), got[0].Payload)
}

func TestReadMessage_LongMessage(t *testing.T) {
	// A payload past 254 bytes exercises the three-byte TLV length and
	// multiple buffer refills.
	tg := ntag216(t)
	payload := bytes.Repeat([]byte{'v'}, 600)
	want := []ndef.Record{ndef.MediaRecord(ndef.MediaTypeXVCard, payload)}

	card := newFakeCard(tg)
	card.load(tg, framedMessage(t, want))

	r := New(&fakeConnector{card: card}, tg, nil)
	got, err := r.ReadMessage(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0].Payload)
}

func TestReadMessage_EmptyTag(t *testing.T) {
	tg := ntag216(t)

	t.Run("terminator first", func(t *testing.T) {
		card := newFakeCard(tg)
		card.load(tg, []byte{ndef.TLVTerminator})
		r := New(&fakeConnector{card: card}, tg, nil)
		_, err := r.ReadMessage(context.Background())
		assert.ErrorIs(t, err, ErrEmptyTag)
	})

	t.Run("all zeroes", func(t *testing.T) {
		card := newFakeCard(tg)
		r := New(&fakeConnector{card: card}, tg, nil)
		_, err := r.ReadMessage(context.Background())
		assert.ErrorIs(t, err, ErrEmptyTag)
	})
}

func TestReadMessage_CardError(t *testing.T) {
	tg := ntag216(t)
	card := newFakeCard(tg)
	card.failReads = true

	r := New(&fakeConnector{card: card}, tg, nil)
	_, err := r.ReadMessage(context.Background())
	require.Error(t, err)
	var se *apdu.StatusError
	assert.True(t, errors.As(err, &se))
	assert.True(t, card.disconnected)
}

func TestWriteMessage_RoundTrip(t *testing.T) {
	tg := ntag216(t)
	card := newFakeCard(tg)
	r := New(&fakeConnector{card: card}, tg, nil)

	records := []ndef.Record{ndef.MediaRecord(ndef.MediaTypeXVCard, []byte("BEGIN:VCARD\nEND:VCARD\n"))}
	require.NoError(t, r.WriteMessage(context.Background(), records))

	// The TLV area starts at the first user page and is page padded.
	user := card.user(tg)
	assert.Equal(t, byte(ndef.TLVNDEF), user[0])

	got, err := r.ReadMessage(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, records[0].Payload, got[0].Payload)
}

func TestWriteMessage_TooLarge(t *testing.T) {
	tg, err := tag.ByName("ntag213")
	require.NoError(t, err)
	card := newFakeCard(tg)
	r := New(&fakeConnector{card: card}, tg, nil)

	records := []ndef.Record{ndef.MediaRecord(ndef.MediaTypeXVCard, bytes.Repeat([]byte{'v'}, 200))}
	err = r.WriteMessage(context.Background(), records)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestDump(t *testing.T) {
	tg := ntag216(t)
	card := newFakeCard(tg)
	content := []byte{0x03, 0x02, 0xAA, 0xBB, 0xFE}
	card.load(tg, content)

	r := New(&fakeConnector{card: card}, tg, nil)
	data, err := r.Dump(context.Background())
	require.NoError(t, err)
	require.Len(t, data, tg.Capacity())
	assert.Equal(t, content, data[:len(content)])
}

func TestCardATR(t *testing.T) {
	tg := ntag216(t)
	card := newFakeCard(tg)
	r := New(&fakeConnector{card: card}, tg, nil)

	raw, err := r.CardATR(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tg.ATR, raw)
	assert.True(t, card.disconnected)
}

func TestReadMessage_WaitTimeout(t *testing.T) {
	tg := ntag216(t)
	r := New(&fakeConnector{wait: true}, tg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
