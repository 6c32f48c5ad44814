// Package feed maintains the two websocket transports feeding the bot: the
// CLOB market channel for order books and the RTDS channel for reference
// prices.
package feed

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/rewired-gh/polyflip/internal/logger"
	"github.com/rewired-gh/polyflip/internal/metrics"
	"github.com/rewired-gh/polyflip/internal/models"
)

// BookEvent is one wholesale book replacement for an asset.
type BookEvent struct {
	AssetID string
	Bids    []models.PriceLevel
	Asks    []models.PriceLevel
}

// BookFeed streams book-replace events from the CLOB market websocket.
type BookFeed struct {
	conn   *websocket.Conn
	events chan BookEvent
}

// DialBook connects to the CLOB market channel and subscribes to the given
// asset IDs. The read loop runs until the connection fails or is closed;
// Events is closed when it stops.
func DialBook(ctx context.Context, wsURL string, assetIDs []string) (*BookFeed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	sub := map[string]interface{}{
		"type":       "market",
		"assets_ids": assetIDs,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, err
	}

	f := &BookFeed{
		conn:   conn,
		events: make(chan BookEvent, 64),
	}
	go f.readLoop()
	return f, nil
}

// Events returns the channel of book replacements.
func (f *BookFeed) Events() <-chan BookEvent {
	return f.events
}

// Ping sends the channel's application-level keepalive.
func (f *BookFeed) Ping() error {
	return f.conn.WriteMessage(websocket.TextMessage, []byte("PING"))
}

// Close tears down the connection; the read loop exits shortly after.
func (f *BookFeed) Close() error {
	return f.conn.Close()
}

// wireLevel carries price and size as decimal strings on the wire.
type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wireBookMessage struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
}

func (f *BookFeed) readLoop() {
	defer close(f.events)
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			logger.Warn("book feed closed: %v", err)
			return
		}
		if string(data) == "PONG" {
			continue
		}

		for _, msg := range decodeBookMessages(data) {
			if msg.EventType != "book" {
				continue
			}
			metrics.BookUpdates.Inc()
			ev := BookEvent{
				AssetID: msg.AssetID,
				Bids:    parseLevels(msg.Bids),
				Asks:    parseLevels(msg.Asks),
			}
			select {
			case f.events <- ev:
			default:
				// Drop if the consumer is behind; the next replace for this
				// asset supersedes it anyway.
				logger.Debug("book event dropped for %s", ev.AssetID)
			}
		}
	}
}

// decodeBookMessages accepts both a single message object and the batched
// array form the channel uses after the initial snapshot.
func decodeBookMessages(data []byte) []wireBookMessage {
	if len(data) > 0 && data[0] == '[' {
		var msgs []wireBookMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			logger.Error("failed to parse book frame: %v", err)
			return nil
		}
		return msgs
	}

	var msg wireBookMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error("failed to parse book frame: %v", err)
		return nil
	}
	return []wireBookMessage{msg}
}

// parseLevels converts wire levels in delivered order; the cache treats the
// final element as best.
func parseLevels(levels []wireLevel) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(levels))
	for _, l := range levels {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(l.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, models.PriceLevel{Price: price, Size: size})
	}
	return out
}
