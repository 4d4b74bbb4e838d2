// Package indicators provides the moving-average and oscillator math used by
// the trend detectors. Functions take plain close series so they are easy to
// drive from any candle source.
package indicators

import "errors"

// ErrNotEnoughData is returned when a series is shorter than the period.
var ErrNotEnoughData = errors.New("not enough data")
