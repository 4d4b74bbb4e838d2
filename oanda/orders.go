package oanda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

type priceDetails struct {
	Price string `json:"price"`
}

type clientExtensions struct {
	Comment string `json:"comment,omitempty"`
}

type orderSpec struct {
	Type             string            `json:"type"`
	Instrument       string            `json:"instrument"`
	Units            string            `json:"units"`
	Price            string            `json:"price,omitempty"`
	TimeInForce      string            `json:"timeInForce"`
	GtdTime          string            `json:"gtdTime,omitempty"`
	PositionFill     string            `json:"positionFill"`
	StopLossOnFill   *priceDetails     `json:"stopLossOnFill,omitempty"`
	TakeProfitOnFill *priceDetails     `json:"takeProfitOnFill,omitempty"`
	ClientExtensions *clientExtensions `json:"clientExtensions,omitempty"`
}

type orderBody struct {
	Order orderSpec `json:"order"`
}

type transaction struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Price        string `json:"price"`
	Units        string `json:"units"`
	Reason       string `json:"reason"`
	RejectReason string `json:"rejectReason"`
}

type orderResponse struct {
	OrderCreateTransaction *transaction `json:"orderCreateTransaction"`
	OrderFillTransaction   *transaction `json:"orderFillTransaction"`
	OrderCancelTransaction *transaction `json:"orderCancelTransaction"`
	OrderRejectTransaction *transaction `json:"orderRejectTransaction"`
}

var kindType = map[broker.OrderKind]string{
	broker.Market:    "MARKET",
	broker.BuyLimit:  "LIMIT",
	broker.SellLimit: "LIMIT",
	broker.BuyStop:   "STOP",
	broker.SellStop:  "STOP",
}

// SubmitOrder sends req. Requests with a Position close that trade instead
// of opening a new one. Transport failures return a nil result.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	if req.Position != "" {
		return c.closeTrade(ctx, req)
	}

	typ, ok := kindType[req.Kind]
	if !ok || !req.Direction.Valid() {
		return &broker.OrderResult{Code: broker.CodeRejected, Message: fmt.Sprintf("unsupported order %s %s", req.Direction, req.Kind)}, nil
	}
	units := Units(req.Lots, req.Direction)
	if units == "0" {
		return &broker.OrderResult{Code: broker.CodeInvalidVolume, Message: "zero units"}, nil
	}

	decimals := -1
	if info, err := c.GetInstrument(ctx, req.Instrument); err == nil {
		decimals = info.Decimals
	}

	spec := orderSpec{
		Type:         typ,
		Instrument:   Symbol(req.Instrument),
		Units:        units,
		TimeInForce:  "FOK",
		PositionFill: "DEFAULT",
	}
	if req.Kind.Pending() {
		spec.Price = formatPrice(req.Price, decimals)
		spec.TimeInForce = "GTC"
		if !req.Expiration.IsZero() {
			spec.TimeInForce = "GTD"
			spec.GtdTime = req.Expiration.UTC().Format("2006-01-02T15:04:05.000000000Z")
		}
	}
	if req.StopLoss > 0 {
		spec.StopLossOnFill = &priceDetails{Price: formatPrice(req.StopLoss, decimals)}
	}
	if req.TakeProfit > 0 {
		spec.TakeProfitOnFill = &priceDetails{Price: formatPrice(req.TakeProfit, decimals)}
	}
	if req.Label != "" {
		spec.ClientExtensions = &clientExtensions{Comment: req.Label}
	}

	var resp orderResponse
	err := c.do(ctx, http.MethodPost, c.accountPath("/orders"), nil, orderBody{Order: spec}, &resp)
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return nil, fmt.Errorf("submit %s: %w", req.Instrument, err)
	}
	if apiErr != nil {
		reason := apiErr.RejectReason
		if reason == "" && resp.OrderRejectTransaction != nil {
			reason = resp.OrderRejectTransaction.RejectReason
		}
		if reason == "" {
			reason = apiErr.ErrorCode
		}
		return &broker.OrderResult{Code: ReasonCode(reason), Message: apiErr.Error()}, nil
	}

	if t := resp.OrderCancelTransaction; t != nil {
		return &broker.OrderResult{Code: ReasonCode(t.Reason), OrderID: t.ID, Message: t.Reason}, nil
	}
	if t := resp.OrderFillTransaction; t != nil {
		return fillResult(t, "filled")
	}
	if t := resp.OrderCreateTransaction; t != nil {
		return &broker.OrderResult{
			Code:        broker.CodeDone,
			OrderID:     t.ID,
			FilledPrice: req.Price,
			FilledLots:  req.Lots,
			Message:     "placed",
		}, nil
	}
	return nil, fmt.Errorf("submit %s: empty response", req.Instrument)
}

func (c *Client) closeTrade(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	var resp orderResponse
	body := map[string]string{"units": "ALL"}
	err := c.do(ctx, http.MethodPut, c.accountPath("/trades/%s/close", req.Position), nil, body, &resp)
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return nil, fmt.Errorf("close %s: %w", req.Position, err)
	}
	if apiErr != nil {
		return &broker.OrderResult{Code: ReasonCode(apiErr.ErrorCode), Message: apiErr.Error()}, nil
	}
	if resp.OrderFillTransaction == nil {
		reason := "no fill"
		if t := resp.OrderCancelTransaction; t != nil {
			reason = t.Reason
		}
		return &broker.OrderResult{Code: ReasonCode(reason), Message: reason}, nil
	}
	return fillResult(resp.OrderFillTransaction, "closed")
}

func fillResult(t *transaction, msg string) (*broker.OrderResult, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("fill %s price: %w", t.ID, err)
	}
	units, err := decimal.NewFromString(t.Units)
	if err != nil {
		return nil, fmt.Errorf("fill %s units: %w", t.ID, err)
	}
	return &broker.OrderResult{
		Code:        broker.CodeDone,
		OrderID:     t.ID,
		FilledPrice: price,
		FilledLots:  units.Abs().Div(decimal.NewFromInt(UnitsPerLot)).InexactFloat64(),
		Message:     msg,
	}, nil
}

// Units converts lots to a signed OANDA unit count: negative for sells.
func Units(lots float64, d market.Direction) string {
	u := decimal.NewFromFloat(lots).Mul(decimal.NewFromInt(UnitsPerLot)).Round(0)
	if d == market.Sell && !u.IsZero() {
		u = u.Neg()
	}
	return u.String()
}

// formatPrice renders price at the instrument precision; negative decimals
// use the shortest exact form.
func formatPrice(price float64, decimals int) string {
	if decimals < 0 {
		return strconv.FormatFloat(price, 'f', -1, 64)
	}
	return decimal.NewFromFloat(price).StringFixed(int32(decimals))
}

// ReasonCode maps an OANDA reject or cancel reason to a result code.
func ReasonCode(reason string) broker.ResultCode {
	r := strings.ToUpper(reason)
	switch {
	case strings.Contains(r, "MARGIN"):
		return broker.CodeInsufficientMargin
	case strings.Contains(r, "HALTED"), strings.Contains(r, "NOT_TRADEABLE"), strings.Contains(r, "CLOSED"):
		return broker.CodeMarketClosed
	case strings.Contains(r, "STOP_LOSS"), strings.Contains(r, "TAKE_PROFIT"):
		return broker.CodeInvalidStops
	case strings.Contains(r, "UNITS"):
		return broker.CodeInvalidVolume
	case strings.Contains(r, "PRICE"):
		return broker.CodeInvalidPrice
	}
	return broker.CodeRejected
}

var _ broker.MarketAccess = (*Client)(nil)
