// Package engine fuses the price anchor, volatility history, and order book
// cache into a buy/no-buy decision under a single-purchase guarantee.
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rewired-gh/polyflip/internal/anchor"
	"github.com/rewired-gh/polyflip/internal/book"
	"github.com/rewired-gh/polyflip/internal/logger"
	"github.com/rewired-gh/polyflip/internal/metrics"
	"github.com/rewired-gh/polyflip/internal/models"
	"github.com/rewired-gh/polyflip/internal/volatility"
)

// Submitter places a buy order at the exchange. Implementations may retry
// internally; the engine treats the call as opaque and fire-and-forget.
type Submitter interface {
	SubmitBuy(ctx context.Context, tokenID string, side models.Side, price, size float64) (string, error)
}

// State is the engine's position in its two-state machine.
type State int

const (
	// Armed means no purchase has been made this session.
	Armed State = iota
	// Purchased is terminal for the session.
	Purchased
)

// Engine evaluates entry rules on each qualifying price tick and dispatches
// at most one buy per session.
//
// Evaluate and Resolve must be called from the session's single consumer
// goroutine: the purchased flag is test-and-set inside the decision pass and
// relies on that serialization, not on a lock.
type Engine struct {
	session *models.Session
	rules   []models.EntryRule
	books   *book.Cache
	tracker *volatility.Tracker
	anchor  *anchor.Anchor

	submitter Submitter
	purchased bool
	inflight  sync.WaitGroup
}

// New constructs an engine for one session. All collaborators are
// session-scoped and replaced together with the engine on the next cycle.
func New(session *models.Session, rules []models.EntryRule, books *book.Cache, tracker *volatility.Tracker, a *anchor.Anchor, submitter Submitter) *Engine {
	return &Engine{
		session:   session,
		rules:     rules,
		books:     books,
		tracker:   tracker,
		anchor:    a,
		submitter: submitter,
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	if e.purchased {
		return Purchased
	}
	return Armed
}

// Evaluate runs one decision pass for a live tick stamped at timestampMS.
// Ticks before the anchor is established or after session end are ignored.
func (e *Engine) Evaluate(ctx context.Context, timestampMS int64) {
	priceToBeat := e.anchor.PriceToBeat()
	remaining := e.session.Remaining(timestampMS)
	if priceToBeat == 0 || remaining <= 0 {
		return
	}

	current := e.anchor.CurrentPrice()
	delta := current - priceToBeat

	e.tracker.Insert(delta, remaining)
	vol, ok := e.tracker.Query(remaining, delta)
	if !ok {
		return
	}

	drift := math.Abs(vol.Delta)
	volatility1 := delta - drift
	volatility2 := delta + drift

	metrics.CurrentDelta.Set(delta)
	metrics.RemainingSeconds.Set(remaining)

	logger.Debug("tick: ptb=%.2f price=%.2f delta=%.2f vol1=%.2f vol2=%.2f remaining=%.3f/%d",
		priceToBeat, current, delta, volatility1, volatility2, remaining, e.session.Period())

	// Bounds straddling zero mean the signal is not yet directionally stable.
	if e.purchased || volatility1*volatility2 < 0 {
		return
	}

	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Matches(delta, remaining) {
			continue
		}
		side := models.SideUp
		if delta < 0 {
			side = models.SideDown
		}
		e.dispatch(ctx, side, rule.Amount)
	}
}

// dispatch fires a buy for the chosen side at its cached best bid. The
// purchased flag is set before the order call is issued, so a second matching
// rule in the same pass, or a tick arriving right behind this one, never
// reaches the exchange. A failed submission does not reset the flag: the
// session's one shot is spent the moment dispatch commits.
func (e *Engine) dispatch(ctx context.Context, side models.Side, size float64) {
	if e.purchased {
		return
	}

	tokenID := e.session.TokenFor(side)
	bid, bidOK := e.books.BestBid(tokenID)
	_, askOK := e.books.BestAsk(tokenID)
	if !bidOK || !askOK {
		logger.Debug("no cached book for %s token, holding fire", side)
		return
	}

	e.purchased = true
	metrics.OrdersSubmitted.WithLabelValues(string(side)).Inc()
	logger.Info("dispatching %s buy: token=%s price=%.4f size=%.2f", side, tokenID, bid, size)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		start := time.Now()
		orderID, err := e.submitter.SubmitBuy(ctx, tokenID, side, bid, size)
		metrics.OrderLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.OrderFailures.Inc()
			logger.Error("%s buy failed: %v", side, err)
			return
		}
		logger.Info("%s buy accepted in %v: order=%s", side, time.Since(start), orderID)
	}()
}

// Wait blocks until any in-flight order submission has finished logging.
// Used at session teardown; the decision path never waits.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Resolve reports the session outcome from the final observed price. This is
// a reporting concern only; it feeds nothing back into the engine.
func (e *Engine) Resolve() models.Outcome {
	priceToBeat := e.anchor.PriceToBeat()
	if priceToBeat == 0 {
		return models.OutcomeUnknown
	}
	if priceToBeat > e.anchor.CurrentPrice() {
		return models.OutcomeDown
	}
	return models.OutcomeUp
}
