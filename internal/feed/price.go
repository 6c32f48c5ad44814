package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rewired-gh/polyflip/internal/logger"
	"github.com/rewired-gh/polyflip/internal/metrics"
	"github.com/rewired-gh/polyflip/internal/models"
)

// PriceEvent is one message from the reference price stream. History is
// non-nil for anchor-style batches; otherwise the event is a live scalar tick
// with a millisecond timestamp.
type PriceEvent struct {
	History     []models.PricePoint
	TimestampMS int64
	Value       float64
}

// IsHistory reports whether the event carries an anchor batch.
func (e *PriceEvent) IsHistory() bool {
	return e.History != nil
}

// PriceFeed streams reference price ticks from the RTDS websocket for a
// single symbol.
type PriceFeed struct {
	conn   *websocket.Conn
	symbol string
	events chan PriceEvent
}

// DialPrice connects to the RTDS channel and subscribes to the aggregate and
// chainlink price topics for the coin. Only chainlink frames for
// "<coin>/usd" reach Events; the aggregate topic keeps the anchor batches
// flowing.
func DialPrice(ctx context.Context, wsURL, coin string) (*PriceFeed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	symbol := coin + "/usd"
	sub := map[string]interface{}{
		"subscriptions": []map[string]string{
			{
				"topic":   "crypto_prices",
				"type":    "update",
				"filters": fmt.Sprintf(`{"symbol":%q}`, strings.ToUpper(coin)+"USDT"),
			},
			{
				"topic":   "crypto_prices_chainlink",
				"type":    "update",
				"filters": fmt.Sprintf(`{"symbol":%q}`, symbol),
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, err
	}

	f := &PriceFeed{
		conn:   conn,
		symbol: symbol,
		events: make(chan PriceEvent, 64),
	}
	go f.readLoop()
	return f, nil
}

// Events returns the channel of price events.
func (f *PriceFeed) Events() <-chan PriceEvent {
	return f.events
}

// Close tears down the connection; the read loop exits shortly after.
func (f *PriceFeed) Close() error {
	return f.conn.Close()
}

func (f *PriceFeed) deliver(ev PriceEvent) {
	select {
	case f.events <- ev:
	default:
		// Drop if the consumer is behind; a later tick carries a fresher value.
		logger.Debug("price event dropped for %s", f.symbol)
	}
}

type wirePricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

type wirePriceMessage struct {
	Payload struct {
		Symbol    string           `json:"symbol"`
		Timestamp int64            `json:"timestamp"`
		Value     *float64         `json:"value"`
		Data      []wirePricePoint `json:"data"`
	} `json:"payload"`
}

func (f *PriceFeed) readLoop() {
	defer close(f.events)
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			logger.Warn("price feed closed: %v", err)
			return
		}

		var msg wirePriceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Error("failed to parse price frame: %v", err)
			continue
		}
		if msg.Payload.Symbol != f.symbol {
			continue
		}

		// A frame without a scalar value is an anchor-style historical batch.
		if msg.Payload.Value == nil {
			points := make([]models.PricePoint, 0, len(msg.Payload.Data))
			for _, p := range msg.Payload.Data {
				points = append(points, models.PricePoint{Timestamp: p.Timestamp, Value: p.Value})
			}
			f.deliver(PriceEvent{History: points})
			continue
		}

		metrics.PriceTicks.Inc()
		f.deliver(PriceEvent{
			TimestampMS: msg.Payload.Timestamp,
			Value:       *msg.Payload.Value,
		})
	}
}
