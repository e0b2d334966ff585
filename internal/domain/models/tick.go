package models

import "time"

// Tick is a single trade event fanned out to chart widgets.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"t"` // unix milliseconds
}

// Time converts the millisecond timestamp.
func (t *Tick) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// Bar is one OHLCV aggregate at a given resolution.
type Bar struct {
	Symbol string    `json:"symbol"`
	Bucket time.Time `json:"bucket"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Snapshot is a point-in-time daily summary for a ticker: today's bar,
// the previous session's bar, and the last trade price.
type Snapshot struct {
	Symbol    string  `json:"symbol"`
	Day       Bar     `json:"day"`
	PrevDay   Bar     `json:"prevDay"`
	LastPrice float64 `json:"lastPrice"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
}

// ComputeChange fills Change/ChangePct from LastPrice against PrevDay close.
func (s *Snapshot) ComputeChange() {
	if s.PrevDay.Close == 0 {
		return
	}
	s.Change = s.LastPrice - s.PrevDay.Close
	s.ChangePct = s.Change / s.PrevDay.Close * 100
}
