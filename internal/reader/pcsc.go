package reader

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ebfe/scard"
	"go.uber.org/zap"
)

// statusPollInterval bounds each GetStatusChange call so context
// cancellation is observed promptly.
const statusPollInterval = 250 * time.Millisecond

// PCSC is a Connector backed by the platform smart-card daemon.
type PCSC struct {
	ctx          *scard.Context
	readerFilter string
	expectedATR  []byte
	log          *zap.Logger
}

// NewPCSC establishes a PC/SC context. A non-empty readerFilter selects
// readers whose name contains the substring (e.g. "ACR122"); a non-nil
// expectedATR makes WaitForCard skip cards of other types.
func NewPCSC(readerFilter string, expectedATR []byte, log *zap.Logger) (*PCSC, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("reader: establishing pc/sc context (is pcscd running?): %w", err)
	}
	return &PCSC{ctx: sctx, readerFilter: readerFilter, expectedATR: expectedATR, log: log}, nil
}

// Release tears down the PC/SC context.
func (p *PCSC) Release() error {
	return p.ctx.Release()
}

// WaitForCard polls the attached readers until a matching card is present or
// the context is done.
func (p *PCSC) WaitForCard(ctx context.Context) (Card, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		readers, err := p.ctx.ListReaders()
		if err != nil && err != scard.ErrNoReadersAvailable {
			return nil, fmt.Errorf("reader: listing readers: %w", err)
		}
		readers = p.filterReaders(readers)
		if len(readers) == 0 {
			p.log.Debug("no matching readers attached, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(statusPollInterval):
			}
			continue
		}

		states := make([]scard.ReaderState, len(readers))
		for i, name := range readers {
			states[i] = scard.ReaderState{Reader: name, CurrentState: scard.StateUnaware}
		}
		if err := p.ctx.GetStatusChange(states, statusPollInterval); err != nil && err != scard.ErrTimeout {
			return nil, fmt.Errorf("reader: waiting for card: %w", err)
		}

		for _, s := range states {
			if s.EventState&scard.StatePresent == 0 {
				continue
			}
			if p.expectedATR != nil && !bytes.Equal(s.Atr, p.expectedATR) {
				p.log.Debug("ignoring card with unexpected atr",
					zap.String("reader", s.Reader),
					zap.String("atr", fmt.Sprintf("% X", s.Atr)))
				continue
			}
			card, err := p.ctx.Connect(s.Reader, scard.ShareShared, scard.ProtocolAny)
			if err != nil {
				return nil, fmt.Errorf("reader: connecting to card in %q: %w", s.Reader, err)
			}
			p.log.Debug("card present", zap.String("reader", s.Reader))
			return &pcscCard{card: card, atr: append([]byte(nil), s.Atr...)}, nil
		}
	}
}

func (p *PCSC) filterReaders(readers []string) []string {
	if p.readerFilter == "" {
		return readers
	}
	var out []string
	for _, name := range readers {
		if strings.Contains(strings.ToLower(name), strings.ToLower(p.readerFilter)) {
			out = append(out, name)
		}
	}
	return out
}

type pcscCard struct {
	card *scard.Card
	atr  []byte
}

func (c *pcscCard) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

func (c *pcscCard) ATR() []byte {
	return c.atr
}

func (c *pcscCard) Disconnect() error {
	return c.card.Disconnect(scard.LeaveCard)
}

// ListReaders enumerates attached PC/SC readers with a short-lived context;
// used by the doctor command.
func ListReaders() ([]string, error) {
	sctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("reader: establishing pc/sc context (is pcscd running?): %w", err)
	}
	defer sctx.Release()

	readers, err := sctx.ListReaders()
	if err == scard.ErrNoReadersAvailable {
		return nil, nil
	}
	return readers, err
}
