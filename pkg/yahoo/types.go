package yahoo

// ChartResponse is the envelope returned by the v8 finance chart
// endpoint for both quote and history requests.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartResult carries one symbol's chart payload.
type ChartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"` // latest traded price
		ChartPreviousClose float64 `json:"chartPreviousClose"` // prior session close
	} `json:"meta"`
	Timestamps []int64 `json:"timestamp"` // unix seconds, one per sample
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"` // null for missing samples
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartError is the error object inside the chart envelope.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
