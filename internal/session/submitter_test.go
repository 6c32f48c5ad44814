package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rewired-gh/polyflip/internal/models"
	"github.com/rewired-gh/polyflip/internal/storage"
)

type stubExchange struct {
	orderID string
	err     error
	calls   int
}

func (s *stubExchange) SubmitBuy(_ context.Context, _ string, _ models.Side, _, _ float64) (string, error) {
	s.calls++
	return s.orderID, s.err
}

func newSubmitterFixture(t *testing.T, exchange *stubExchange) (*journalingSubmitter, *storage.Journal) {
	t.Helper()
	journal, err := storage.Open(filepath.Join(t.TempDir(), "journal.db"), 10)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	session := &models.Session{
		Slug:        "btc-updown-5m-1000",
		UpTokenID:   "up-token",
		DownTokenID: "down-token",
		Start:       1000,
		End:         1300,
	}
	if err := journal.RecordSession(session); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	return &journalingSubmitter{inner: exchange, journal: journal, session: session}, journal
}

func TestSubmitBuyJournalsAcceptedOrder(t *testing.T) {
	exchange := &stubExchange{orderID: "ex-1"}
	sub, journal := newSubmitterFixture(t, exchange)

	orderID, err := sub.SubmitBuy(context.Background(), "up-token", models.SideUp, 0.48, 25)
	if err != nil {
		t.Fatalf("SubmitBuy failed: %v", err)
	}
	if orderID != "ex-1" {
		t.Errorf("orderID = %q, want ex-1", orderID)
	}

	orders, err := journal.SessionOrders("btc-updown-5m-1000")
	if err != nil {
		t.Fatalf("SessionOrders failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d journaled orders, want 1", len(orders))
	}
	if orders[0].Status != "accepted" || orders[0].Detail != "ex-1" {
		t.Errorf("order = %+v, want accepted/ex-1", orders[0])
	}
}

func TestSubmitBuyJournalsFailure(t *testing.T) {
	exchange := &stubExchange{err: errors.New("exchange down")}
	sub, journal := newSubmitterFixture(t, exchange)

	if _, err := sub.SubmitBuy(context.Background(), "up-token", models.SideUp, 0.48, 25); err == nil {
		t.Fatal("expected submission error to propagate")
	}

	orders, err := journal.SessionOrders("btc-updown-5m-1000")
	if err != nil {
		t.Fatalf("SessionOrders failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d journaled orders, want 1", len(orders))
	}
	if orders[0].Status != "failed" {
		t.Errorf("status = %q, want failed", orders[0].Status)
	}
	if exchange.calls != 1 {
		t.Errorf("exchange calls = %d, want 1", exchange.calls)
	}
}
