// Package engine runs the trading loop: fetch history, evaluate the
// strategy, gate the decision, route the order, and persist the outcome.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"macdbot/internal/config"
	"macdbot/internal/exchange"
	"macdbot/internal/md"
	"macdbot/internal/metrics"
	"macdbot/internal/risk"
	"macdbot/internal/state"
	"macdbot/internal/strategy"
)

// Exchange is the slice of the venue client the loop needs.
type Exchange interface {
	Ticker(ctx context.Context, pair string) (exchange.Ticker, error)
	Balance(ctx context.Context) (map[string]exchange.Asset, error)
	PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderRef, error)
}

// Publisher receives live events for the dashboard. Implementations must not
// block.
type Publisher interface {
	Publish(event string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

// Status is the periodic snapshot broadcast to the dashboard.
type Status struct {
	Time           time.Time                            `json:"time"`
	PortfolioValue float64                              `json:"portfolio_value"`
	Cash           float64                              `json:"cash"`
	Prices         map[string]float64                   `json:"prices"`
	Positions      map[string]strategy.PositionSnapshot `json:"positions"`
	Stats          MonitorStats                         `json:"stats"`
}

// pairState is everything the loop tracks per trading pair.
type pairState struct {
	pair      string
	base      string
	engine    *strategy.Engine
	ring      *md.Ring
	lastPrice float64
}

// Bot owns the evaluation loop across all configured pairs.
type Bot struct {
	cfg       *config.Config
	ex        Exchange
	feed      md.Source
	store     *state.Store
	gate      *risk.Gate
	decisions *DecisionLogger
	pub       Publisher
	monitor   Monitor
	log       zerolog.Logger
	now       func() time.Time

	pairs []*pairState
}

// New wires a bot from its dependencies. A nil publisher is replaced with a
// no-op one.
func New(cfg *config.Config, ex Exchange, feed md.Source, store *state.Store, gate *risk.Gate, decisions *DecisionLogger, pub Publisher, log zerolog.Logger) (*Bot, error) {
	if pub == nil {
		pub = noopPublisher{}
	}
	bot := &Bot{
		cfg:       cfg,
		ex:        ex,
		feed:      feed,
		store:     store,
		gate:      gate,
		decisions: decisions,
		pub:       pub,
		log:       log,
		now:       time.Now,
	}
	for _, pair := range cfg.Trading.Pairs {
		base, _, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		eng, err := strategy.New(cfg.StrategyConfig())
		if err != nil {
			return nil, err
		}
		bot.pairs = append(bot.pairs, &pairState{
			pair:   pair,
			base:   base,
			engine: eng,
			ring:   md.NewRing(cfg.Feed.Window),
		})
	}
	return bot, nil
}

// SetPublisher replaces the event sink. Called once during wiring, before
// Run; the dashboard needs the bot and the bot needs the dashboard.
func (b *Bot) SetPublisher(pub Publisher) {
	if pub != nil {
		b.pub = pub
	}
}

func splitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed pair %q, want BASE/QUOTE", pair)
	}
	return parts[0], parts[1], nil
}

// Recover restores per-pair engine state from the store. When no checkpoint
// exists but the wallet holds the base asset and the last recorded trade was
// a buy, the position is rebuilt from that trade.
func (b *Bot) Recover(ctx context.Context) error {
	wallet, err := b.ex.Balance(ctx)
	if err != nil {
		return fmt.Errorf("recovery balance: %w", err)
	}

	for _, ps := range b.pairs {
		st, found, err := b.store.LoadEngineState(ctx, ps.pair)
		if err != nil {
			return err
		}
		if found {
			ps.engine.Restore(st)
			b.log.Info().Str("pair", ps.pair).Str("position", string(st.Position.State)).Msg("state restored")
			continue
		}

		held := wallet[ps.base].Free + wallet[ps.base].Lock
		if held <= 0 {
			continue
		}
		last, ok, err := b.store.LastTrade(ctx, ps.pair)
		if err != nil {
			return err
		}
		if !ok || last.Side != string(strategy.Buy) {
			b.log.Warn().Str("pair", ps.pair).Float64("held", held).
				Msg("holding without a recorded buy, leaving engine flat")
			continue
		}
		ps.engine.Restore(strategy.EngineState{
			Position: strategy.PositionSnapshot{
				State:         strategy.Long,
				EntryPrice:    last.Price,
				EntryTime:     last.Time,
				HighWaterMark: last.Price,
			},
			Cooldown: strategy.CooldownSnapshot{
				LastTradeTime:   last.Time,
				LastTradeAction: strategy.Buy,
				Recorded:        true,
			},
		})
		b.log.Info().Str("pair", ps.pair).Float64("entry", last.Price).
			Msg("position rebuilt from trade history")
	}
	return nil
}

// Run ticks all pairs on the configured interval until the context is
// cancelled. Only invariant violations abort the loop.
func (b *Bot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.PollInterval())
	defer ticker.Stop()

	if err := b.Tick(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Tick runs one evaluation cycle over every pair, then snapshots the
// portfolio.
func (b *Bot) Tick(ctx context.Context) error {
	now := b.now().UTC()
	for _, ps := range b.pairs {
		if err := b.tickPair(ctx, ps, now); err != nil {
			return err
		}
	}
	b.snapshotPortfolio(ctx, now)
	return nil
}

func (b *Bot) tickPair(ctx context.Context, ps *pairState, now time.Time) error {
	history, err := b.fetchHistory(ctx, ps, now)
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues(ps.pair).Inc()
		b.log.Error().Err(err).Str("pair", ps.pair).Msg("price feed unavailable, skipping tick")
		return nil
	}
	price := history[len(history)-1].Price
	ps.lastPrice = price
	ps.ring.Add(history[len(history)-1])

	before := ps.engine.State()
	decision, err := ps.engine.Evaluate(history, now)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", ps.pair, err)
	}
	metrics.TicksTotal.WithLabelValues(ps.pair).Inc()
	metrics.DecisionsTotal.WithLabelValues(ps.pair, string(decision.Action)).Inc()

	rec := DecisionRecord{
		Timestamp:  now,
		Pair:       ps.pair,
		Price:      price,
		Action:     decision.Action,
		Reason:     decision.Reason,
		StopLoss:   decision.StopLoss,
		TakeProfit: decision.TakeProfit,
	}

	if decision.Action == strategy.Hold {
		rec.Result = "hold"
		b.decisions.Append(rec)
		b.persistState(ctx, ps)
		b.log.Debug().Str("pair", ps.pair).Float64("price", price).Str("reason", decision.Reason).Msg("hold")
		return nil
	}

	b.execute(ctx, ps, before, decision, rec, price, now)
	b.persistState(ctx, ps)
	return nil
}

// execute sizes, gates, and routes a buy or sell. The engine has already
// committed the position transition; any failure past this point rolls it
// back to the pre-evaluation state.
func (b *Bot) execute(ctx context.Context, ps *pairState, before strategy.EngineState, decision strategy.Decision, rec DecisionRecord, price float64, now time.Time) {
	wallet, err := b.ex.Balance(ctx)
	if err != nil {
		ps.engine.Restore(before)
		rec.Result = "order_failed"
		rec.RejectReason = err.Error()
		b.decisions.Append(rec)
		b.log.Error().Err(err).Str("pair", ps.pair).Msg("balance fetch failed, decision rolled back")
		return
	}

	_, quote, _ := splitPair(ps.pair)
	cash := wallet[quote].Free
	held := wallet[ps.base].Free

	var qty decimal.Decimal
	side := exchange.Buy
	if decision.Action == strategy.Buy {
		qty = decimal.NewFromFloat(cash * b.cfg.Trading.MaxPositionSize).
			Div(decimal.NewFromFloat(price)).Round(exchange.QtyPrecision)
	} else {
		side = exchange.Sell
		qty = decimal.NewFromFloat(held).Round(exchange.QtyPrecision)
	}
	qtyF, _ := qty.Float64()
	rec.Quantity = qtyF

	tradesToday, err := b.store.TradesSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		ps.engine.Restore(before)
		rec.Result = "order_failed"
		rec.RejectReason = err.Error()
		b.decisions.Append(rec)
		b.log.Error().Err(err).Str("pair", ps.pair).Msg("trade count unavailable, decision rolled back")
		return
	}

	positionValue := held * price
	gateCtx := risk.Context{
		Now:            now,
		Price:          price,
		Quantity:       qtyF,
		CashBalance:    cash,
		PositionValue:  positionValue,
		PortfolioValue: cash + positionValue,
		TradesToday:    tradesToday,
	}
	if err := b.gate.Check(decision.Action, gateCtx); err != nil {
		ps.engine.Restore(before)
		rec.Result = "rejected"
		rec.RejectReason = err.Error()
		b.decisions.Append(rec)
		return
	}

	ref, err := b.ex.PlaceOrder(ctx, exchange.OrderRequest{Pair: ps.pair, Side: side, Quantity: qty})
	if err != nil {
		ps.engine.Restore(before)
		rec.Result = "order_failed"
		rec.RejectReason = err.Error()
		b.decisions.Append(rec)
		metrics.OrdersTotal.WithLabelValues(ps.pair, string(side), "failed").Inc()
		b.log.Error().Err(err).Str("pair", ps.pair).Str("side", string(side)).Msg("order failed, decision rolled back")
		return
	}

	rec.Result = "executed"
	rec.OrderID = ref.ID
	b.decisions.Append(rec)
	metrics.OrdersTotal.WithLabelValues(ps.pair, string(side), "ok").Inc()

	trade := state.Trade{
		Pair:     ps.pair,
		Side:     string(decision.Action),
		Price:    price,
		Quantity: qtyF,
		Value:    price * qtyF,
		Reason:   decision.Reason,
		Time:     now,
	}
	if err := b.store.RecordTrade(ctx, trade); err != nil {
		b.log.Error().Err(err).Str("pair", ps.pair).Msg("trade record failed")
	}
	if decision.Action == strategy.Sell && before.Position.State == strategy.Long {
		b.monitor.RecordPnL((price - before.Position.EntryPrice) * qtyF)
	}

	b.pub.Publish("trade", trade)
	b.log.Info().Str("pair", ps.pair).Str("side", string(side)).
		Float64("price", price).Str("qty", qty.String()).Str("reason", decision.Reason).
		Msg("trade executed")
}

// fetchHistory pulls the feed window with retry and appends the live ticker
// price as the current point.
func (b *Bot) fetchHistory(ctx context.Context, ps *pairState, now time.Time) ([]strategy.PricePoint, error) {
	var history []strategy.PricePoint
	err := withRetry(ctx, func() error {
		var ferr error
		history, ferr = b.feed.History(ctx, ps.base)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", ps.base, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("history %s: empty series", ps.base)
	}

	ticker, err := b.ex.Ticker(ctx, ps.pair)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", ps.pair, err)
	}
	return append(history, strategy.PricePoint{Time: now, Price: ticker.LastPrice}), nil
}

func (b *Bot) persistState(ctx context.Context, ps *pairState) {
	if err := b.store.SaveEngineState(ctx, ps.pair, ps.engine.State()); err != nil {
		b.log.Error().Err(err).Str("pair", ps.pair).Msg("state checkpoint failed")
	}
}

// snapshotPortfolio values the account at current prices and broadcasts a
// status event.
func (b *Bot) snapshotPortfolio(ctx context.Context, now time.Time) {
	wallet, err := b.ex.Balance(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("portfolio snapshot skipped")
		return
	}

	cash := 0.0
	prices := make(map[string]float64, len(b.pairs))
	positions := make(map[string]strategy.PositionSnapshot, len(b.pairs))
	total := 0.0

	seenQuote := map[string]bool{}
	for _, ps := range b.pairs {
		_, quote, _ := splitPair(ps.pair)
		if !seenQuote[quote] {
			seenQuote[quote] = true
			cash += wallet[quote].Free + wallet[quote].Lock
		}
		held := wallet[ps.base].Free + wallet[ps.base].Lock
		total += held * ps.lastPrice
		prices[ps.pair] = ps.lastPrice
		positions[ps.pair] = ps.engine.Position()
	}
	total += cash

	b.monitor.ObserveValue(total)
	metrics.PortfolioValue.Set(total)
	if err := b.store.SavePortfolioPoint(ctx, state.PortfolioPoint{Time: now, Value: total}); err != nil {
		b.log.Error().Err(err).Msg("portfolio point save failed")
	}

	b.pub.Publish("status", Status{
		Time:           now,
		PortfolioValue: total,
		Cash:           cash,
		Prices:         prices,
		Positions:      positions,
		Stats:          b.monitor.Stats(),
	})
}

// Positions exposes the live per-pair position snapshots for the dashboard.
func (b *Bot) Positions() map[string]strategy.PositionSnapshot {
	out := make(map[string]strategy.PositionSnapshot, len(b.pairs))
	for _, ps := range b.pairs {
		out[ps.pair] = ps.engine.Position()
	}
	return out
}

// RecentPrices returns the in-memory price window for a pair, oldest first.
func (b *Bot) RecentPrices(pair string) []strategy.PricePoint {
	for _, ps := range b.pairs {
		if ps.pair == pair {
			return ps.ring.Points()
		}
	}
	return nil
}

// Shutdown checkpoints every pair's state. Called on graceful exit.
func (b *Bot) Shutdown(ctx context.Context) {
	for _, ps := range b.pairs {
		b.persistState(ctx, ps)
	}
}
