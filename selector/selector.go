// Package selector maps a news currency to the instrument and direction to
// trade.
package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/signal"
)

var (
	ErrUnsupportedCurrency = errors.New("currency not in priority table")
	ErrNoCandidate         = errors.New("no candidate instrument passed selection")
)

// Selection is the instrument chosen for a news event and the bias to trade.
type Selection struct {
	Instrument string
	Direction  market.Direction
}

type Selector struct {
	Market   broker.MarketAccess
	Detector signal.Detector
	Table    Table
	log      zerolog.Logger
}

func New(m broker.MarketAccess, d signal.Detector, t Table, log zerolog.Logger) *Selector {
	if t == nil {
		t = ExtendedTable
	}
	return &Selector{
		Market:   m,
		Detector: d,
		Table:    t,
		log:      log.With().Str("component", "selector").Logger(),
	}
}

// Select walks the candidates for currency and returns the first one that
// has metadata, no open position and a trend signal.
func (s *Selector) Select(ctx context.Context, currency string) (Selection, error) {
	candidates, ok := s.Table.Candidates(currency)
	if !ok {
		return Selection{}, fmt.Errorf("%s: %w", currency, ErrUnsupportedCurrency)
	}

	for _, instrument := range candidates {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		log := s.log.With().Str("currency", currency).Str("instrument", instrument).Logger()

		if _, err := s.Market.GetInstrument(ctx, instrument); err != nil {
			log.Debug().Err(err).Msg("skip: no instrument info")
			continue
		}

		open, err := broker.HasOpenPosition(ctx, s.Market, instrument)
		if err != nil {
			log.Debug().Err(err).Msg("skip: positions unavailable")
			continue
		}
		if open {
			log.Debug().Msg("skip: position already open")
			continue
		}

		dir, err := s.Detector.Detect(ctx, instrument)
		if err != nil || !dir.Valid() {
			log.Debug().Err(err).Msg("skip: no trend signal")
			continue
		}

		log.Info().Str("direction", dir.String()).Msg("instrument selected")
		return Selection{Instrument: instrument, Direction: dir}, nil
	}
	return Selection{}, fmt.Errorf("%s: %w", currency, ErrNoCandidate)
}

// BestLiquidity is the ungated fallback: EURUSD for USD news, otherwise the
// first candidate the broker knows, otherwise USD<currency> when the broker
// lists it.
func (s *Selector) BestLiquidity(ctx context.Context, currency string) (string, error) {
	ccy := strings.ToUpper(strings.TrimSpace(currency))
	if ccy == "USD" {
		return "EURUSD", nil
	}

	if candidates, ok := s.Table.Candidates(ccy); ok {
		for _, instrument := range candidates {
			if _, err := s.Market.GetInstrument(ctx, instrument); err == nil {
				return instrument, nil
			}
		}
	}

	fallback := "USD" + ccy
	if _, err := s.Market.GetInstrument(ctx, fallback); err == nil {
		return fallback, nil
	}
	return "", fmt.Errorf("%s: %w", currency, ErrNoCandidate)
}
