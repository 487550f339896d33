package model

import "time"

// OHLCV represents a single candlestick bar. A series is a []OHLCV in
// ascending time order: index 0 is the oldest bar, the last index is current.
type OHLCV struct {
	Time   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// LastBar returns the most recent bar of a series. ok is false when bars is empty.
func LastBar(bars []OHLCV) (bar OHLCV, ok bool) {
	if len(bars) == 0 {
		return OHLCV{}, false
	}
	return bars[len(bars)-1], true
}
