package gamma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCurrentCycleAlignment(t *testing.T) {
	now := time.Unix(1756738512, 0) // arbitrary instant inside a cycle

	c := CurrentCycle("btc", 5, now)
	if c.Start%300 != 0 {
		t.Errorf("Start = %d, not aligned to 5m boundary", c.Start)
	}
	if c.End-c.Start != 300 {
		t.Errorf("cycle length = %d, want 300", c.End-c.Start)
	}
	if c.Start > now.Unix() || now.Unix() >= c.End {
		t.Errorf("now %d outside cycle [%d, %d)", now.Unix(), c.Start, c.End)
	}
}

func TestSlugForSubHourly(t *testing.T) {
	start := time.Unix(1756738500, 0)
	got := slugFor("btc", 5, start)
	want := "btc-updown-5m-1756738500"
	if got != want {
		t.Errorf("slugFor = %q, want %q", got, want)
	}
}

func TestSlugForHourly(t *testing.T) {
	// 2026-09-01 15:00 ET
	et := mustLoadLocation("America/New_York")
	start := time.Date(2026, 9, 1, 15, 0, 0, 0, et)
	got := slugFor("btc", 60, start)
	want := "bitcoin-up-or-down-september-1-3pm-et"
	if got != want {
		t.Errorf("slugFor = %q, want %q", got, want)
	}
}

func TestFetchSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/slug/btc-updown-5m-1756738500" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "1",
			"slug": "btc-updown-5m-1756738500",
			"question": "Bitcoin Up or Down?",
			"active": true,
			"closed": false,
			"clobTokenIds": "[\"token-up\", \"token-down\"]"
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	session, err := c.FetchSession(context.Background(), "btc-updown-5m-1756738500", 1756738500, 1756738800)
	if err != nil {
		t.Fatalf("FetchSession failed: %v", err)
	}
	if session.UpTokenID != "token-up" || session.DownTokenID != "token-down" {
		t.Errorf("token IDs = (%s, %s), want (token-up, token-down)", session.UpTokenID, session.DownTokenID)
	}
	if session.Start != 1756738500 || session.End != 1756738800 {
		t.Errorf("session bounds = (%d, %d)", session.Start, session.End)
	}
}

func TestFetchSessionMalformedTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id":"1","clobTokenIds":"[\"only-one\"]"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	if _, err := c.FetchSession(context.Background(), "s", 0, 300); err == nil {
		t.Fatal("expected error for market with a single outcome token")
	}
}
