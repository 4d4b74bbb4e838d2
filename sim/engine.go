// Package sim is an in-memory broker. It fills market orders at the current
// quote, rests pending orders until price crosses them, closes trades on
// SL/TP, and can be scripted to answer with specific result codes.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/pkg/id"
)

type Engine struct {
	mu          sync.Mutex
	instruments map[string]market.InstrumentInfo
	ticks       *market.TickStore
	candles     map[string]map[market.Timeframe][]market.Candle
	trades      map[string]*Trade
	pending     map[string]*Order
	script      []scripted
	submissions []broker.OrderRequest
	seq         int

	// MaxLots caps total open lots; orders beyond it are refused with
	// CodeInsufficientMargin. Zero means unlimited.
	MaxLots float64
}

type scripted struct {
	code   broker.ResultCode
	silent bool
}

func NewEngine() *Engine {
	instruments := make(map[string]market.InstrumentInfo, len(market.Instruments))
	for k, v := range market.Instruments {
		instruments[k] = v
	}
	return &Engine{
		instruments: instruments,
		ticks:       market.NewTickStore(),
		candles:     make(map[string]map[market.Timeframe][]market.Candle),
		trades:      make(map[string]*Trade),
		pending:     make(map[string]*Order),
	}
}

var _ broker.MarketAccess = (*Engine)(nil)

// SetInstrument adds or replaces instrument metadata.
func (e *Engine) SetInstrument(info market.InstrumentInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instruments[info.Name] = info
}

// RemoveInstrument makes GetInstrument report the symbol as unknown.
func (e *Engine) RemoveInstrument(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.instruments, name)
}

// SetCandles replaces the candle history for instrument/tf (oldest first).
func (e *Engine) SetCandles(instrument string, tf market.Timeframe, candles []market.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	byTF, ok := e.candles[instrument]
	if !ok {
		byTF = make(map[market.Timeframe][]market.Candle)
		e.candles[instrument] = byTF
	}
	byTF[tf] = append([]market.Candle(nil), candles...)
}

// Script queues result codes returned, in order, by the next submissions
// instead of simulating them. Non-done codes leave no trace on the book.
func (e *Engine) Script(codes ...broker.ResultCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range codes {
		e.script = append(e.script, scripted{code: c})
	}
}

// ScriptNoAnswer makes the next submission return a nil result.
func (e *Engine) ScriptNoAnswer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.script = append(e.script, scripted{silent: true})
}

// Submissions returns every request received, in order.
func (e *Engine) Submissions() []broker.OrderRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]broker.OrderRequest(nil), e.submissions...)
}

// PendingOrders returns resting orders in placement order.
func (e *Engine) PendingOrders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Order, 0, len(e.pending))
	for _, o := range e.pending {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Trades returns all trades, open and closed, in the order they opened.
func (e *Engine) Trades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Trade, 0, len(e.trades))
	for _, t := range e.trades {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (e *Engine) GetCandles(ctx context.Context, instrument string, tf market.Timeframe, count int) ([]market.Candle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs := e.candles[instrument][tf]
	if len(cs) == 0 {
		return nil, fmt.Errorf("candles %s %s: %w", instrument, tf, broker.ErrNoData)
	}
	return append([]market.Candle(nil), market.Last(cs, count)...), nil
}

func (e *Engine) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	t, err := e.ticks.Get(instrument)
	if err != nil {
		return market.Tick{}, fmt.Errorf("tick %s: %w", instrument, broker.ErrNoData)
	}
	return t, nil
}

func (e *Engine) GetInstrument(ctx context.Context, instrument string) (market.InstrumentInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, ok := e.instruments[instrument]
	if !ok {
		return market.InstrumentInfo{}, fmt.Errorf("%s: %w", instrument, broker.ErrInstrumentNotFound)
	}
	return info, nil
}

func (e *Engine) GetOpenPositions(ctx context.Context, instrument string) ([]broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []broker.Position
	for _, t := range e.trades {
		if !t.Open || (instrument != "" && t.Instrument != instrument) {
			continue
		}
		out = append(out, t.position())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

// OpenPosition places a filled trade directly on the book, bypassing orders.
func (e *Engine) OpenPosition(instrument string, d market.Direction, lots, price float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	t := &Trade{
		seq:        e.seq,
		ID:         id.New(),
		Instrument: instrument,
		Direction:  d,
		Lots:       lots,
		EntryPrice: price,
		OpenTime:   time.Now().UTC(),
		Open:       true,
	}
	e.trades[t.ID] = t
	return t.ID
}

func (e *Engine) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.submissions = append(e.submissions, req)

	if len(e.script) > 0 {
		s := e.script[0]
		e.script = e.script[1:]
		if s.silent {
			return nil, fmt.Errorf("submit %s: no answer from broker", req.Instrument)
		}
		if s.code != broker.CodeDone {
			return &broker.OrderResult{Code: s.code, Message: s.code.String()}, nil
		}
	}

	if !req.Direction.Valid() || req.Lots <= 0 {
		return &broker.OrderResult{Code: broker.CodeInvalidVolume, Message: "invalid direction or volume"}, nil
	}

	tick, err := e.ticks.Get(req.Instrument)
	if err != nil {
		return &broker.OrderResult{Code: broker.CodeMarketClosed, Message: "no quote"}, nil
	}

	if req.Position != "" {
		return e.closeLocked(req, tick), nil
	}

	if e.MaxLots > 0 && e.openLotsLocked()+req.Lots > e.MaxLots+1e-9 {
		return &broker.OrderResult{Code: broker.CodeInsufficientMargin, Message: "no money"}, nil
	}

	if req.Kind.Pending() {
		e.seq++
		o := &Order{ID: id.At(tick.Time), Request: req, Placed: tick.Time, seq: e.seq}
		e.pending[o.ID] = o
		return &broker.OrderResult{
			Code:        broker.CodeDone,
			OrderID:     o.ID,
			FilledPrice: req.Price,
			FilledLots:  req.Lots,
			Message:     "placed",
		}, nil
	}

	t := e.fillLocked(req, tick.PriceFor(req.Direction), tick.Time)
	return &broker.OrderResult{
		Code:        broker.CodeDone,
		OrderID:     t.ID,
		FilledPrice: t.EntryPrice,
		FilledLots:  t.Lots,
		Message:     "done",
	}, nil
}

func (e *Engine) fillLocked(req broker.OrderRequest, price float64, when time.Time) *Trade {
	e.seq++
	t := &Trade{
		seq:        e.seq,
		ID:         id.At(when),
		Instrument: req.Instrument,
		Direction:  req.Direction,
		Lots:       req.Lots,
		EntryPrice: price,
		OpenTime:   when,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Label:      req.Label,
		Open:       true,
	}
	e.trades[t.ID] = t
	return t
}

func (e *Engine) closeLocked(req broker.OrderRequest, tick market.Tick) *broker.OrderResult {
	t, ok := e.trades[req.Position]
	if !ok || !t.Open {
		return &broker.OrderResult{Code: broker.CodeRejected, Message: fmt.Sprintf("position %s not open", req.Position)}
	}
	if req.Direction != t.Direction.Opposite() {
		return &broker.OrderResult{Code: broker.CodeRejected, Message: "close must oppose position"}
	}
	price := tick.PriceFor(req.Direction)
	t.close(price, tick.Time, "ManualClose")
	return &broker.OrderResult{
		Code:        broker.CodeDone,
		OrderID:     t.ID,
		FilledPrice: price,
		FilledLots:  t.Lots,
		Message:     "closed",
	}
}

func (e *Engine) openLotsLocked() float64 {
	var lots float64
	for _, t := range e.trades {
		if t.Open {
			lots += t.Lots
		}
	}
	return lots
}

// UpdatePrice records a new quote, then fills triggered pending orders,
// drops expired ones and closes trades whose SL or TP was hit. Quotes older
// than the current one are ignored.
func (e *Engine) UpdatePrice(tick market.Tick) {
	if !e.ticks.Set(tick) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for oid, o := range e.pending {
		if o.Request.Instrument != tick.Instrument {
			continue
		}
		if o.expired(tick.Time) {
			delete(e.pending, oid)
			continue
		}
		if o.triggered(tick) {
			delete(e.pending, oid)
			e.fillLocked(o.Request, o.Request.Price, tick.Time)
		}
	}

	for _, t := range e.trades {
		if !t.Open || t.Instrument != tick.Instrument {
			continue
		}
		mark := t.mark(tick)
		switch {
		case t.hitStopLoss(mark):
			t.close(mark, tick.Time, "StopLoss")
		case t.hitTakeProfit(mark):
			t.close(mark, tick.Time, "TakeProfit")
		}
	}
}

func (t *Trade) close(price float64, when time.Time, reason string) {
	t.ClosePrice = price
	t.CloseTime = when
	t.CloseReason = reason
	t.Open = false
}
