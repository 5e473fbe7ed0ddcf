package terminal

// Order types (MT5 wire values).
const (
	OrderTypeBuy  = 0
	OrderTypeSell = 1
)

// Trade request actions.
const (
	TradeActionDeal    = 1
	TradeActionPending = 5
	TradeActionSLTP    = 6
	TradeActionModify  = 7
	TradeActionRemove  = 8
)

// Order lifetime policies.
const (
	OrderTimeGTC = 0
	OrderTimeDay = 1
)

// Order filling policies.
const (
	OrderFillingFOK    = 0
	OrderFillingIOC    = 1
	OrderFillingReturn = 2
)

// Trade server return codes. Only the ones the gateway branches on.
const (
	RetcodeRequote      = 10004
	RetcodeReject       = 10006
	RetcodeDone         = 10009
	RetcodeDonePartial  = 10010
	RetcodeInvalidPrice = 10015
	RetcodeInvalid      = 10013
	RetcodePriceChanged = 10020
	RetcodeNoMoney      = 10019
)

// AccountInfo mirrors the terminal's account snapshot.
type AccountInfo struct {
	Login       int64
	Server      string
	Company     string
	Currency    string
	Leverage    int
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	MarginLevel float64
}

// Position is an open position in the terminal.
type Position struct {
	Ticket       int64
	Symbol       string
	Type         int // OrderTypeBuy / OrderTypeSell
	Volume       float64
	PriceOpen    float64
	PriceCurrent float64
	StopLoss     float64
	TakeProfit   float64
	Profit       float64
	Swap         float64
	Time         int64
	Comment      string
}

// Order is a pending order in the terminal.
type Order struct {
	Ticket     int64
	Symbol     string
	Type       int
	Volume     float64
	PriceOpen  float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// SymbolInfo describes a tradable instrument.
type SymbolInfo struct {
	Name      string
	Digits    int
	Point     float64
	VolumeMin float64
	VolumeMax float64
	Visible   bool
}

// Tick is the latest quote for a symbol. Ticks go out on the websocket
// stream as-is, hence the tags.
type Tick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Time   int64   `json:"time"`
}

// Bar is one OHLCV candle.
type Bar struct {
	Time       int64
	Open       float64
	High       float64
	Low        float64
	Close      float64
	TickVolume int64
	Spread     int
	RealVolume int64
}

// TradeRequest is the order_send payload.
type TradeRequest struct {
	Action      int
	Symbol      string
	Volume      float64
	Type        int
	Price       float64
	StopLoss    float64
	TakeProfit  float64
	Deviation   int
	Magic       int64
	Position    int64 // ticket for close/modify actions
	Comment     string
	TypeTime    int
	TypeFilling int
}

// TradeResult is the trade server's ack for order_send.
type TradeResult struct {
	Retcode int
	Order   int64 // ticket assigned by the server
	Volume  float64
	Price   float64
	Bid     float64
	Ask     float64
	Comment string
}

// Done reports whether the request was accepted by the trade server.
func (r *TradeResult) Done() bool {
	return r.Retcode == RetcodeDone || r.Retcode == RetcodeDonePartial
}

// Requoted reports whether the request failed on a stale price and is
// worth retrying with a fresh quote.
func (r *TradeResult) Requoted() bool {
	return r.Retcode == RetcodeRequote || r.Retcode == RetcodePriceChanged
}
