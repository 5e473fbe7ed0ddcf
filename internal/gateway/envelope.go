package gateway

import "fmt"

// Result is the uniform response envelope. Exactly one of Data/Error is
// populated; errors never escape to the transport layer as faults.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps a payload in a success envelope.
func OK(data any) *Result {
	return &Result{Success: true, Data: data}
}

// Fail wraps a message in a failure envelope.
func Fail(msg string) *Result {
	return &Result{Success: false, Error: msg}
}

// Failf formats a failure envelope.
func Failf(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// invalidSession is the canonical rejection for unknown session ids.
const invalidSession = "Invalid session ID"

// ConnectResponse is the connect command's shape, with the session id
// and account snapshot at the top level as clients already expect.
type ConnectResponse struct {
	Success     bool         `json:"success"`
	SessionID   string       `json:"session_id,omitempty"`
	AccountInfo *AccountData `json:"account_info,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// AccountData is the reshaped account snapshot.
type AccountData struct {
	Login       int64          `json:"login"`
	Server      string         `json:"server,omitempty"`
	Balance     float64        `json:"balance"`
	Equity      float64        `json:"equity"`
	Margin      float64        `json:"margin"`
	FreeMargin  float64        `json:"free_margin"`
	MarginLevel float64        `json:"margin_level"`
	Currency    string         `json:"currency"`
	Leverage    int            `json:"leverage"`
	Company     string         `json:"company,omitempty"`
	Connected   bool           `json:"connected"`
	Mode        string         `json:"mode"`
	Positions   []PositionData `json:"positions,omitempty"`
	Orders      []OrderData    `json:"orders,omitempty"`
}

// PositionData is the reshaped open position.
type PositionData struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Type         int     `json:"type"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current,omitempty"`
	StopLoss     float64 `json:"sl"`
	TakeProfit   float64 `json:"tp"`
	Profit       float64 `json:"profit"`
	Swap         float64 `json:"swap,omitempty"`
	Time         int64   `json:"time,omitempty"`
	Comment      string  `json:"comment"`
}

// OrderData is the reshaped pending order.
type OrderData struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Volume     float64 `json:"volume"`
	PriceOpen  float64 `json:"price_open"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Comment    string  `json:"comment"`
}

// PriceData is the quote payload.
type PriceData struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Spread    float64 `json:"spread"`
	Timestamp string  `json:"timestamp"`
}

// OrderPlacedData echoes the accepted order back to the caller.
type OrderPlacedData struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Comment    string  `json:"comment"`
	Time       string  `json:"time"`
}

// BarData is one normalized candle. All eight fields are numeric.
type BarData struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume int64   `json:"tick_volume"`
	Spread     int     `json:"spread"`
	RealVolume int64   `json:"real_volume"`
}

// HistoryData is the historical-data payload.
type HistoryData struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Count     int       `json:"count"`
	Bars      []BarData `json:"bars"`
}
