// Package signal classifies recent candles into a directional bias.
package signal

import (
	"context"
	"errors"

	"github.com/rustyeddy/newstrader/market"
)

// ErrDataUnavailable is wrapped when the detector could not get enough candles.
var ErrDataUnavailable = errors.New("signal data unavailable")

// Detector yields Buy, Sell or None for an instrument. A non-nil error always
// comes with None and only explains why no direction was produced.
type Detector interface {
	Detect(ctx context.Context, instrument string) (market.Direction, error)
}

// Func adapts a plain function to Detector.
type Func func(ctx context.Context, instrument string) (market.Direction, error)

func (f Func) Detect(ctx context.Context, instrument string) (market.Direction, error) {
	return f(ctx, instrument)
}

// Fixed always returns d. It is used when the caller already knows the bias.
func Fixed(d market.Direction) Detector {
	return Func(func(context.Context, string) (market.Direction, error) { return d, nil })
}
