// Package session owns the market-cycle lifecycle: discovery, feed wiring,
// the single consumer loop that serializes all decision state mutation, and
// teardown at resolution.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/polyflip/internal/anchor"
	"github.com/rewired-gh/polyflip/internal/book"
	"github.com/rewired-gh/polyflip/internal/clob"
	"github.com/rewired-gh/polyflip/internal/config"
	"github.com/rewired-gh/polyflip/internal/engine"
	"github.com/rewired-gh/polyflip/internal/feed"
	"github.com/rewired-gh/polyflip/internal/gamma"
	"github.com/rewired-gh/polyflip/internal/logger"
	"github.com/rewired-gh/polyflip/internal/metrics"
	"github.com/rewired-gh/polyflip/internal/models"
	"github.com/rewired-gh/polyflip/internal/storage"
	"github.com/rewired-gh/polyflip/internal/telegram"
	"github.com/rewired-gh/polyflip/internal/volatility"
)

// cyclePause is the settle delay between market cycles.
const cyclePause = 2 * time.Second

// Driver runs market cycles back to back. Components holding decision state
// are constructed fresh per cycle and discarded at its end; the driver itself
// carries only process-lifetime collaborators.
type Driver struct {
	cfg      *config.Config
	discover *gamma.Client
	exchange *clob.Client
	journal  *storage.Journal
	notifier *telegram.Notifier // nil when disabled
}

// NewDriver creates a session driver. notifier may be nil.
func NewDriver(cfg *config.Config, discover *gamma.Client, exchange *clob.Client, journal *storage.Journal, notifier *telegram.Notifier) *Driver {
	return &Driver{
		cfg:      cfg,
		discover: discover,
		exchange: exchange,
		journal:  journal,
		notifier: notifier,
	}
}

// Run executes market cycles until ctx is cancelled. Cycle failures are
// logged and notified; the next cycle starts after a short pause.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := d.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("cycle failed: %v", err)
			if d.notifier != nil {
				if sendErr := d.notifier.SendError(err); sendErr != nil {
					logger.Warn("failed to send error notification: %v", sendErr)
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cyclePause):
		}
	}
}

func (d *Driver) runCycle(ctx context.Context) error {
	cycle := gamma.CurrentCycle(d.cfg.Market.Coin, d.cfg.Market.PeriodMinutes, time.Now())
	logger.Info("searching for market %q (ends %d)", cycle.Slug, cycle.End)

	session, err := d.discover.FetchSession(ctx, cycle.Slug, cycle.Start, cycle.End)
	if err != nil {
		return fmt.Errorf("market discovery failed: %w", err)
	}
	if err := d.journal.RecordSession(session); err != nil {
		logger.Warn("failed to journal session %s: %v", session.Slug, err)
	}

	books := book.NewCache()
	tracker := volatility.New()
	priceAnchor := anchor.New(session.Start, session.End)
	submitter := &journalingSubmitter{
		inner:    d.exchange,
		journal:  d.journal,
		notifier: d.notifier,
		session:  session,
	}
	eng := engine.New(session, d.cfg.Entry, books, tracker, priceAnchor, submitter)

	bookFeed, err := feed.DialBook(ctx, d.cfg.Exchange.ClobWSURL, []string{session.UpTokenID, session.DownTokenID})
	if err != nil {
		return fmt.Errorf("book feed dial failed: %w", err)
	}
	defer bookFeed.Close()

	priceFeed, err := feed.DialPrice(ctx, d.cfg.Exchange.RTDSWSURL, d.cfg.Market.Coin)
	if err != nil {
		return fmt.Errorf("price feed dial failed: %w", err)
	}
	defer priceFeed.Close()

	logger.Info("subscribed to market updates for tokens %s, %s", session.UpTokenID, session.DownTokenID)

	return d.consume(ctx, session, books, tracker, priceAnchor, eng, bookFeed, priceFeed)
}

// consume is the single goroutine through which every mutation of decision
// state flows. Book updates and price ticks race at the transport layer; here
// they are applied one at a time, so the engine always sees a consistent,
// at-most-one-update-stale book snapshot.
func (d *Driver) consume(
	ctx context.Context,
	session *models.Session,
	books *book.Cache,
	tracker *volatility.Tracker,
	priceAnchor *anchor.Anchor,
	eng *engine.Engine,
	bookFeed *feed.BookFeed,
	priceFeed *feed.PriceFeed,
) error {
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-bookFeed.Events():
			if !ok {
				return fmt.Errorf("book feed for %s closed", session.Slug)
			}
			books.ApplyReplace(ev.AssetID, ev.Bids, ev.Asks)

		case ev, ok := <-priceFeed.Events():
			if !ok {
				return fmt.Errorf("price feed for %s closed", session.Slug)
			}
			if ev.IsHistory() {
				priceAnchor.ApplyHistory(ev.History)
				continue
			}
			priceAnchor.ApplyLive(ev.TimestampMS, ev.Value)
			eng.Evaluate(ctx, ev.TimestampMS)

		case <-heartbeat.C:
			if err := bookFeed.Ping(); err != nil {
				logger.Warn("book feed ping failed: %v", err)
			}
			if priceAnchor.PriceToBeat() != 0 && time.Now().Unix() >= session.End {
				d.resolve(session, tracker, priceAnchor, eng)
				return nil
			}
		}
	}
}

// resolve reports the session outcome and tears down per-session state. Runs
// on the consumer goroutine, never concurrently with a decision pass.
func (d *Driver) resolve(session *models.Session, tracker *volatility.Tracker, priceAnchor *anchor.Anchor, eng *engine.Engine) {
	outcome := eng.Resolve()
	priceToBeat := priceAnchor.PriceToBeat()
	finalPrice := priceAnchor.CurrentPrice()

	logger.Info("%s: %s WIN (price to beat %.2f, final %.2f)",
		session.Slug, strings.ToUpper(string(outcome)), priceToBeat, finalPrice)
	metrics.Sessions.WithLabelValues(string(outcome)).Inc()

	tracker.Clear()
	eng.Wait()

	if err := d.journal.FinishSession(session.Slug, priceToBeat, finalPrice, outcome); err != nil {
		logger.Warn("failed to journal outcome for %s: %v", session.Slug, err)
	}
	if d.notifier != nil {
		if err := d.notifier.SendOutcome(session.Slug, outcome, priceToBeat, finalPrice); err != nil {
			logger.Warn("failed to send outcome notification: %v", err)
		}
	}
}
