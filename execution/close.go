package execution

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/rustyeddy/newstrader/broker"
)

// CloseFailure is one position that could not be closed.
type CloseFailure struct {
	Ticket string
	Err    error
}

// CloseReport lists what CloseAll did per position.
type CloseReport struct {
	Instrument string
	Closed     []string
	Failed     []CloseFailure
}

func (r CloseReport) OK() bool { return len(r.Failed) == 0 }

// CloseAll submits an opposing market order for every open position on
// instrument. A failure on one position does not stop the others; if any
// failed the error wraps ErrPartialClose.
func (e *Engine) CloseAll(ctx context.Context, instrument, label string) (CloseReport, error) {
	report := CloseReport{Instrument: instrument}

	positions, err := e.Market.GetOpenPositions(ctx, instrument)
	if err != nil {
		return report, fmt.Errorf("%s positions: %w: %v", instrument, ErrDataUnavailable, err)
	}

	var errs *multierror.Error
	for _, p := range positions {
		if p.Instrument != instrument {
			continue
		}
		if err := e.closeOne(ctx, p, label); err != nil {
			report.Failed = append(report.Failed, CloseFailure{Ticket: p.Ticket, Err: err})
			errs = multierror.Append(errs, fmt.Errorf("ticket %s: %w", p.Ticket, err))
			continue
		}
		report.Closed = append(report.Closed, p.Ticket)
	}

	if err := errs.ErrorOrNil(); err != nil {
		e.log.Error().Err(err).
			Str("instrument", instrument).
			Int("closed", len(report.Closed)).
			Int("failed", len(report.Failed)).
			Msg("close incomplete")
		return report, fmt.Errorf("%s: %w: %w", instrument, ErrPartialClose, err)
	}
	e.log.Info().Str("instrument", instrument).Int("closed", len(report.Closed)).Msg("positions closed")
	return report, nil
}

func (e *Engine) closeOne(ctx context.Context, p broker.Position, label string) error {
	tick, err := e.Market.GetTick(ctx, p.Instrument)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	dir := p.Direction.Opposite()
	req := broker.OrderRequest{
		Instrument: p.Instrument,
		Direction:  dir,
		Kind:       broker.Market,
		Lots:       p.Volume,
		Price:      tick.PriceFor(dir),
		Label:      label,
		Position:   p.Ticket,
	}
	out := e.submit(ctx, req, tick, "")
	if !out.OK {
		return fmt.Errorf("%w: %s", ErrOrderRejected, out.Reason)
	}
	return nil
}
