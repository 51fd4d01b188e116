package store

import "time"

// Quote is a single current-price observation plus its percentage change
// versus the prior close.
type Quote struct {
	Price         float64
	ChangePercent float64
}

// PricePoint is one sample of an intraday history series.
type PricePoint struct {
	Price     float64
	Timestamp time.Time
}

// SymbolState holds everything the tracker knows about one symbol.
// RecentPrices and RecentTimestamps are parallel slices bounded to the
// last maxRecent samples; HistoryWindow is a fixed look-back series
// replaced wholesale on each historical refresh.
//
// The extrema fields use +Inf/-Inf as "no data yet" sentinels.
type SymbolState struct {
	Symbol string

	RecentPrices     []float64
	RecentTimestamps []time.Time
	HistoryWindow    []PricePoint

	CurrentPrice     float64
	ChangePercent    float64
	ChangePercent24h float64

	RecentMin  float64
	RecentMax  float64
	HistoryMin float64
	HistoryMax float64
}

// HasData reports whether the symbol has received at least one quote.
func (s SymbolState) HasData() bool {
	return len(s.RecentPrices) > 0
}
