package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rewired-gh/polyflip/internal/anchor"
	"github.com/rewired-gh/polyflip/internal/book"
	"github.com/rewired-gh/polyflip/internal/models"
	"github.com/rewired-gh/polyflip/internal/volatility"
)

type submitted struct {
	tokenID string
	side    models.Side
	price   float64
	size    float64
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []submitted
	err   error
}

func (f *fakeSubmitter) SubmitBuy(_ context.Context, tokenID string, side models.Side, price, size float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitted{tokenID: tokenID, side: side, price: price, size: size})
	if f.err != nil {
		return "", f.err
	}
	return "order-1", nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSubmitter) last() submitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fixture struct {
	session   *models.Session
	books     *book.Cache
	tracker   *volatility.Tracker
	anchor    *anchor.Anchor
	submitter *fakeSubmitter
	engine    *Engine
}

func newFixture(rules []models.EntryRule) *fixture {
	session := &models.Session{
		Slug:        "btc-updown-test",
		UpTokenID:   "up-token",
		DownTokenID: "down-token",
		Start:       1000,
		End:         1900,
	}
	books := book.NewCache()
	tracker := volatility.New()
	a := anchor.New(session.Start, session.End)
	sub := &fakeSubmitter{}
	return &fixture{
		session:   session,
		books:     books,
		tracker:   tracker,
		anchor:    a,
		submitter: sub,
		engine:    New(session, rules, books, tracker, a, sub),
	}
}

func (f *fixture) fillBooks() {
	f.books.ApplyReplace("up-token",
		[]models.PriceLevel{{Price: 0.48, Size: 100}},
		[]models.PriceLevel{{Price: 0.52, Size: 100}},
	)
	f.books.ApplyReplace("down-token",
		[]models.PriceLevel{{Price: 0.46, Size: 100}},
		[]models.PriceLevel{{Price: 0.54, Size: 100}},
	)
}

// tick feeds a live price and runs one decision pass.
func (f *fixture) tick(tsMS int64, value float64) {
	f.anchor.ApplyLive(tsMS, value)
	f.engine.Evaluate(context.Background(), tsMS)
	f.engine.Wait()
}

var defaultRules = []models.EntryRule{
	{Min: 100, Max: 200, EntryRemainingDown: 0, EntryRemainingUp: 60, Amount: 25},
}

func TestEndToEndFirstTickBuy(t *testing.T) {
	f := newFixture(defaultRules)
	f.fillBooks()

	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	// First qualifying tick: delta=120, remaining=50. Singleton history gives
	// zero drift, so both volatility bounds equal delta and the rule fires.
	f.tick(1850000, 50120)

	if f.submitter.count() != 1 {
		t.Fatalf("submitted %d orders, want 1", f.submitter.count())
	}
	got := f.submitter.last()
	if got.side != models.SideUp {
		t.Errorf("side = %s, want up (delta positive)", got.side)
	}
	if got.tokenID != "up-token" {
		t.Errorf("tokenID = %s, want up-token", got.tokenID)
	}
	if got.price != 0.48 {
		t.Errorf("price = %v, want up-token best bid 0.48", got.price)
	}
	if got.size != 25 {
		t.Errorf("size = %v, want 25", got.size)
	}
	if f.engine.State() != Purchased {
		t.Error("engine should be in Purchased state after dispatch")
	}
}

func TestNegativeDeltaBuysDownToken(t *testing.T) {
	f := newFixture(defaultRules)
	f.fillBooks()
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	f.tick(1850000, 49880) // delta = -120

	if f.submitter.count() != 1 {
		t.Fatalf("submitted %d orders, want 1", f.submitter.count())
	}
	got := f.submitter.last()
	if got.side != models.SideDown || got.tokenID != "down-token" {
		t.Errorf("got side=%s token=%s, want down side", got.side, got.tokenID)
	}
	if got.price != 0.46 {
		t.Errorf("price = %v, want down-token best bid 0.46", got.price)
	}
}

func TestSingleBuyAcrossTicks(t *testing.T) {
	f := newFixture(defaultRules)
	f.fillBooks()
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	f.tick(1850000, 50120)
	f.tick(1851000, 50130)
	f.tick(1852000, 50150)

	if f.submitter.count() != 1 {
		t.Errorf("submitted %d orders across matching ticks, want 1", f.submitter.count())
	}
}

func TestSingleBuyAcrossMultipleMatchingRules(t *testing.T) {
	rules := []models.EntryRule{
		{Min: 100, Max: 200, EntryRemainingDown: 0, EntryRemainingUp: 60, Amount: 25},
		{Min: 50, Max: 300, EntryRemainingDown: 0, EntryRemainingUp: 120, Amount: 40},
	}
	f := newFixture(rules)
	f.fillBooks()
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	// Both rules match; the flag set by the first dispatch gates the second.
	f.tick(1850000, 50120)

	if f.submitter.count() != 1 {
		t.Fatalf("submitted %d orders from one tick, want 1", f.submitter.count())
	}
	if got := f.submitter.last(); got.size != 25 {
		t.Errorf("size = %v, want first rule's amount 25", got.size)
	}
}

func TestFailedSubmitConsumesTheShot(t *testing.T) {
	f := newFixture(defaultRules)
	f.submitter.err = errors.New("exchange rejected order")
	f.fillBooks()
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	f.tick(1850000, 50120)
	if f.engine.State() != Purchased {
		t.Fatal("failed submission must still leave the engine Purchased")
	}

	f.tick(1851000, 50130)
	if f.submitter.count() != 1 {
		t.Errorf("submitted %d orders after failure, want 1", f.submitter.count())
	}
}

func TestStraddlingVolatilityBoundsSuppressAction(t *testing.T) {
	f := newFixture([]models.EntryRule{
		{Min: 8, Max: 1000, EntryRemainingDown: 0, EntryRemainingUp: 900, Amount: 10},
	})
	f.fillBooks()
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	// First tick records delta -5 (below the rule's min), then delta 10 at
	// remaining 50. Drift |(-5)-10| = 15 gives bounds -5 and 25, straddling
	// zero, so the matching second tick is suppressed.
	f.tick(1820000, 49995)
	f.tick(1850000, 50010)

	if f.submitter.count() != 0 {
		t.Errorf("submitted %d orders under straddling bounds, want 0", f.submitter.count())
	}
	if f.engine.State() != Armed {
		t.Error("engine should stay Armed while the signal is unstable")
	}
}

func TestNoActionBeforeAnchor(t *testing.T) {
	f := newFixture(defaultRules)
	f.fillBooks()

	// priceToBeat is still zero: the tick must not even enter the history.
	f.tick(1850000, 50120)

	if f.submitter.count() != 0 {
		t.Errorf("submitted %d orders before anchor, want 0", f.submitter.count())
	}
	if f.tracker.Len() != 0 {
		t.Errorf("history has %d samples before anchor, want 0", f.tracker.Len())
	}
}

func TestNoActionAfterSessionEnd(t *testing.T) {
	f := newFixture(defaultRules)
	f.fillBooks()
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	f.tick(1901000, 50120) // remaining < 0

	if f.submitter.count() != 0 {
		t.Errorf("submitted %d orders after session end, want 0", f.submitter.count())
	}
}

func TestMissingBookSuppressesDispatch(t *testing.T) {
	f := newFixture(defaultRules)
	// Only the down token has a book; the matching side is up.
	f.books.ApplyReplace("down-token",
		[]models.PriceLevel{{Price: 0.46, Size: 100}},
		[]models.PriceLevel{{Price: 0.54, Size: 100}},
	)
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	f.tick(1850000, 50120)

	if f.submitter.count() != 0 {
		t.Errorf("submitted %d orders without a cached book, want 0", f.submitter.count())
	}
	if f.engine.State() != Armed {
		t.Error("a suppressed dispatch must not consume the session's shot")
	}
}

func TestOneSidedBookSuppressesDispatch(t *testing.T) {
	f := newFixture(defaultRules)
	// Bid present but ask side empty: both must be valid to fire.
	f.books.ApplyReplace("up-token", []models.PriceLevel{{Price: 0.48, Size: 100}}, nil)
	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})

	f.tick(1850000, 50120)

	if f.submitter.count() != 0 {
		t.Errorf("submitted %d orders with one-sided book, want 0", f.submitter.count())
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(defaultRules)

	if got := f.engine.Resolve(); got != models.OutcomeUnknown {
		t.Errorf("Resolve before anchor = %s, want unknown", got)
	}

	f.anchor.ApplyHistory([]models.PricePoint{{Timestamp: 1000, Value: 50000}})
	f.anchor.ApplyLive(1880000, 49900)
	if got := f.engine.Resolve(); got != models.OutcomeDown {
		t.Errorf("Resolve = %s, want down", got)
	}

	f.anchor.ApplyLive(1881000, 50100)
	if got := f.engine.Resolve(); got != models.OutcomeUp {
		t.Errorf("Resolve = %s, want up", got)
	}

	// Exact tie resolves Up: down wins only on a strictly higher anchor.
	f.anchor.ApplyLive(1882000, 50000)
	if got := f.engine.Resolve(); got != models.OutcomeUp {
		t.Errorf("Resolve on tie = %s, want up", got)
	}
}
