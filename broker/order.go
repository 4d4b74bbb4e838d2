package broker

import (
	"fmt"
	"time"

	"github.com/rustyeddy/newstrader/market"
)

// OrderKind distinguishes market deals from the four pending order types.
type OrderKind string

const (
	Market    OrderKind = "market"
	BuyLimit  OrderKind = "buy_limit"
	BuyStop   OrderKind = "buy_stop"
	SellLimit OrderKind = "sell_limit"
	SellStop  OrderKind = "sell_stop"
)

// Pending reports whether k rests on the book instead of filling immediately.
func (k OrderKind) Pending() bool { return k != Market }

// PendingKind picks limit or stop for a pending order at target given the
// current market price: limits sit on the favorable side, stops on the other.
func PendingKind(d market.Direction, target, current float64) (OrderKind, error) {
	switch d {
	case market.Buy:
		if target < current {
			return BuyLimit, nil
		}
		return BuyStop, nil
	case market.Sell:
		if target > current {
			return SellLimit, nil
		}
		return SellStop, nil
	}
	return "", fmt.Errorf("pending kind: invalid direction %q", d)
}

// OrderRequest is a single submission to the broker.
type OrderRequest struct {
	Instrument string
	Direction  market.Direction
	Kind       OrderKind
	Lots       float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Label      string
	// Expiration is set on pending orders only.
	Expiration time.Time
	// Position is the ticket being closed by an opposing deal.
	Position string
}

// ResultCode is the broker's numeric trade result.
type ResultCode int

const (
	CodeRequote            ResultCode = 10004
	CodeRejected           ResultCode = 10006
	CodeDone               ResultCode = 10009
	CodeInvalidVolume      ResultCode = 10014
	CodeInvalidPrice       ResultCode = 10015
	CodeInvalidStops       ResultCode = 10016
	CodeTradeDisabled      ResultCode = 10017
	CodeMarketClosed       ResultCode = 10018
	CodeInsufficientMargin ResultCode = 10019
)

func (c ResultCode) String() string {
	switch c {
	case CodeRequote:
		return "requote"
	case CodeRejected:
		return "rejected"
	case CodeDone:
		return "done"
	case CodeInvalidVolume:
		return "invalid volume"
	case CodeInvalidPrice:
		return "invalid price"
	case CodeInvalidStops:
		return "invalid stops"
	case CodeTradeDisabled:
		return "trade disabled"
	case CodeMarketClosed:
		return "market closed"
	case CodeInsufficientMargin:
		return "insufficient margin"
	}
	return fmt.Sprintf("code %d", int(c))
}

// OrderResult is the broker's answer to a submission.
type OrderResult struct {
	Code        ResultCode
	OrderID     string
	FilledPrice float64
	FilledLots  float64
	Message     string
}
