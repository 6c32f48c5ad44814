package models

// PriceLevel is a single price+size entry in one side of an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// PricePoint is one timestamped value from a historical price batch.
// Timestamps are unix seconds, matching the feed's anchor payloads.
type PricePoint struct {
	Timestamp int64
	Value     float64
}

// DeltaSample records one plateau transition of the price delta together with
// the remaining session time at which it was observed. Immutable once
// recorded.
type DeltaSample struct {
	Delta        float64
	RemainingSec float64
}
