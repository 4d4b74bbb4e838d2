package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/risk"
)

// DefaultPollInterval is how often a Monitor samples the price.
const DefaultPollInterval = 5 * time.Second

// ReactiveOverlay watches drawdown from entry and fires grid and hedge market
// orders as thresholds are crossed. Use it with brokers that do not accept
// pending orders.
type ReactiveOverlay struct {
	Risk     *risk.Calculator
	Exec     *execution.Engine
	Grid     GridConfig
	Interval time.Duration
}

func (r *ReactiveOverlay) Name() string { return "reactive" }

func (r *ReactiveOverlay) Arm(ctx context.Context, run *Run, t *Tracker) (*Monitor, error) {
	grid, _ := r.Grid.plan(ctx, r.Risk, run.Instrument)
	run.Plan = grid
	t.Advance(ctx, run, RiskParametersDerived, "")
	t.Advance(ctx, run, Monitoring, "")
	return r.monitor(run, grid, t), nil
}

func (r *ReactiveOverlay) monitor(run *Run, grid risk.GridPlan, t *Tracker) *Monitor {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		run:      run,
		start:    run.Snapshot(),
		grid:     risk.GridPlan{Levels: sortedLevels(grid.Levels), Hedge: grid.Hedge, Adaptive: grid.Adaptive},
		market:   r.Risk.Market,
		calc:     r.Risk,
		exec:     r.Exec,
		tracker:  t,
		interval: interval,
		done:     make(chan MonitorResult, 1),
		log:      t.log.With().Str("run", run.ID).Str("instrument", run.Instrument).Logger(),
	}
}

// MonitorResult is delivered on Done when the monitor exits.
type MonitorResult struct {
	Run Run
	// Err is nil when the monitor stopped because no position remained, and
	// the context error when it was cancelled.
	Err error
}

// Monitor is the background task bound to one reactive run.
type Monitor struct {
	run      *Run
	start    Run
	grid     risk.GridPlan
	market   broker.MarketAccess
	calc     *risk.Calculator
	exec     *execution.Engine
	tracker  *Tracker
	interval time.Duration
	done     chan MonitorResult
	log      zerolog.Logger
}

// RunID identifies the monitored run.
func (m *Monitor) RunID() string { return m.start.ID }

// Done receives exactly one MonitorResult after Run returns.
func (m *Monitor) Done() <-chan MonitorResult { return m.done }

// Run polls until no position remains on the instrument or ctx is cancelled.
// It must be called once.
func (m *Monitor) Run(ctx context.Context) MonitorResult {
	res := m.loop(ctx)
	m.done <- res
	close(m.done)
	return res
}

func (m *Monitor) loop(ctx context.Context) MonitorResult {
	m.log.Info().
		Floats64("levels", m.grid.Levels).
		Float64("hedge", m.grid.Hedge).
		Dur("interval", m.interval).
		Msg("monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Err(ctx.Err()).Msg("monitor cancelled")
			return MonitorResult{Run: m.run.Snapshot(), Err: ctx.Err()}
		case <-ticker.C:
			if m.step(ctx) {
				m.tracker.Finish(ctx, m.run, Closed, "no open position")
				m.log.Info().Msg("monitor finished")
				return MonitorResult{Run: m.run.Snapshot()}
			}
		}
	}
}

// step runs one poll and reports whether the run is over.
func (m *Monitor) step(ctx context.Context) bool {
	open, err := broker.HasOpenPosition(ctx, m.market, m.run.Instrument)
	if err != nil {
		m.log.Warn().Err(err).Msg("positions unavailable")
		return false
	}
	if !open {
		return true
	}

	tick, err := m.market.GetTick(ctx, m.run.Instrument)
	if err != nil {
		m.log.Warn().Err(err).Msg("quote unavailable")
		return false
	}
	dd := Drawdown(m.run, tick.PriceFor(m.run.Direction))
	m.log.Debug().Float64("drawdown_pips", dd).Msg("poll")

	for _, level := range m.grid.Levels {
		if dd >= level && !m.run.HasLevel(level) {
			m.fireGrid(ctx, level, tick.PriceFor(m.run.Direction))
		}
	}
	if dd >= m.grid.Hedge && !m.run.HedgeArmed {
		m.fireHedge(ctx, tick.PriceFor(m.run.Direction.Opposite()))
	}
	return false
}

// Drawdown is the adverse move from entry to price, in pips.
func Drawdown(run *Run, price float64) float64 {
	if run.PipSize <= 0 {
		return 0
	}
	return run.Direction.Sign() * (run.Entry - price) / run.PipSize
}

func (m *Monitor) fireGrid(ctx context.Context, level, price float64) {
	var dist risk.Distances
	if d, err := m.calc.Distances(ctx, m.run.Instrument); err == nil {
		dist = d
	}
	sl, tp := stopsAt(m.run, dist, m.run.Direction, price)

	// A level is spent even if the order fails so it is never retried.
	m.run.AddLevel(level)
	_, err := m.exec.PlaceMarket(ctx, execution.MarketOrder{
		Instrument: m.run.Instrument,
		Direction:  m.run.Direction,
		Lots:       m.run.Lots,
		StopLoss:   sl,
		TakeProfit: tp,
		Label:      gridLabel(level),
	})
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	m.tracker.Advance(ctx, m.run, GridOrdersPlaced, reason)
}

func (m *Monitor) fireHedge(ctx context.Context, price float64) {
	dir := m.run.Direction.Opposite()
	sl, tp := hedgeStops(m.run, dir, price)

	m.run.HedgeArmed = true
	_, err := m.exec.PlaceMarket(ctx, execution.MarketOrder{
		Instrument: m.run.Instrument,
		Direction:  dir,
		Lots:       m.run.Lots,
		StopLoss:   sl,
		TakeProfit: tp,
		Label:      hedgeLabel,
	})
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	m.tracker.Advance(ctx, m.run, HedgeOrderPlaced, reason)
}
