package terminal

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// simSymbol holds the mutable quote state for one instrument.
type simSymbol struct {
	info   SymbolInfo
	price  float64
	spread float64
}

// Sim is an in-process terminal for local development and tests. Quotes
// follow a random walk; orders fill at the current quote; positions live
// in an in-memory ledger.
type Sim struct {
	mu          sync.RWMutex
	initialized bool
	loggedIn    bool
	account     AccountInfo
	symbols     map[string]*simSymbol
	positions   map[int64]*Position
	pending     map[int64]*Order
	nextTicket  int64
	rng         *rand.Rand

	// Publish, when set, receives every generated tick (for the ws stream).
	Publish func(Tick)
}

var simUniverse = map[string]float64{
	"EURUSD": 1.0850,
	"GBPUSD": 1.2650,
	"USDJPY": 149.50,
	"USDCHF": 0.8820,
	"AUDUSD": 0.6540,
	"NZDUSD": 0.6010,
	"USDCAD": 1.3610,
	"EURJPY": 162.20,
	"GBPJPY": 189.10,
	"EURGBP": 0.8580,
	"XAUUSD": 2035.00,
	"XAGUSD": 22.80,
}

// NewSim builds a simulator seeded with a small forex and metals universe.
func NewSim() *Sim {
	s := &Sim{
		symbols:    make(map[string]*simSymbol),
		positions:  make(map[int64]*Position),
		pending:    make(map[int64]*Order),
		nextTicket: 100000,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for name, px := range simUniverse {
		digits := 5
		if strings.HasSuffix(name, "JPY") {
			digits = 3
		}
		if strings.HasPrefix(name, "XAU") || strings.HasPrefix(name, "XAG") {
			digits = 2
		}
		s.symbols[name] = &simSymbol{
			info: SymbolInfo{
				Name:      name,
				Digits:    digits,
				Point:     pointForDigits(digits),
				VolumeMin: 0.01,
				VolumeMax: 100,
				Visible:   true,
			},
			price:  px,
			spread: px * 0.0001,
		}
	}
	return s
}

func pointForDigits(digits int) float64 {
	p := 1.0
	for i := 0; i < digits; i++ {
		p /= 10
	}
	return p
}

func (s *Sim) Initialize(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *Sim) Login(ctx context.Context, login int64, password, server string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotConnected
	}
	if login <= 0 || password == "" {
		return fmt.Errorf("login failed: invalid account %d", login)
	}
	s.loggedIn = true
	s.account = AccountInfo{
		Login:       login,
		Server:      server,
		Company:     "Simulated Terminal Ltd",
		Currency:    "USD",
		Leverage:    100,
		Balance:     10000,
		Equity:      10000,
		FreeMargin:  10000,
		MarginLevel: 0,
	}
	return nil
}

func (s *Sim) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.loggedIn = false
}

// Start begins publishing random-walk ticks until ctx is cancelled.
func (s *Sim) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.step()
			}
		}
	}()
}

func (s *Sim) step() {
	s.mu.Lock()
	ticks := make([]Tick, 0, len(s.symbols))
	now := time.Now().Unix()
	for name, sym := range s.symbols {
		// simple random walk, ~1 bp per step
		sym.price += sym.price * 0.0001 * (s.rng.Float64()*2 - 1)
		ticks = append(ticks, Tick{
			Symbol: name,
			Bid:    sym.price,
			Ask:    sym.price + sym.spread,
			Time:   now,
		})
	}
	pub := s.Publish
	s.mu.Unlock()

	if pub != nil {
		for _, tk := range ticks {
			pub(tk)
		}
	}
}

func (s *Sim) requireLogin() error {
	if !s.initialized || !s.loggedIn {
		return ErrNotConnected
	}
	return nil
}

func (s *Sim) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	acc := s.account
	equity := acc.Balance
	for _, p := range s.positions {
		equity += p.Profit
	}
	acc.Equity = equity
	acc.FreeMargin = equity - acc.Margin
	return &acc, nil
}

func (s *Sim) Positions(ctx context.Context) ([]Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		cp := *p
		if sym, ok := s.symbols[p.Symbol]; ok {
			cp.PriceCurrent = sym.price
			cp.Profit = positionProfit(&cp, sym)
		}
		out = append(out, cp)
	}
	return out, nil
}

// positionProfit values the position at the current bid against a
// standard 100k contract size.
func positionProfit(p *Position, sym *simSymbol) float64 {
	if p.Type == OrderTypeBuy {
		return (sym.price - p.PriceOpen) * p.Volume * 100000
	}
	return (p.PriceOpen - sym.price) * p.Volume * 100000
}

func (s *Sim) PositionByTicket(ctx context.Context, ticket int64) (*Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	p, ok := s.positions[ticket]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	if sym, ok := s.symbols[p.Symbol]; ok {
		cp.PriceCurrent = sym.price
	}
	return &cp, nil
}

func (s *Sim) PendingOrders(ctx context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(s.pending))
	for _, o := range s.pending {
		out = append(out, *o)
	}
	return out, nil
}

func (s *Sim) SymbolInfo(ctx context.Context, name string) (*SymbolInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.symbols[strings.ToUpper(name)]
	if !ok {
		return nil, ErrNotFound
	}
	info := sym.info
	return &info, nil
}

func (s *Sim) SymbolTick(ctx context.Context, name string) (*Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.symbols[strings.ToUpper(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return &Tick{
		Symbol: sym.info.Name,
		Bid:    sym.price,
		Ask:    sym.price + sym.spread,
		Time:   time.Now().Unix(),
	}, nil
}

func (s *Sim) SymbolSelect(ctx context.Context, name string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sym, ok := s.symbols[strings.ToUpper(name)]
	if !ok {
		return ErrNotFound
	}
	sym.info.Visible = visible
	return nil
}

func (s *Sim) Symbols(ctx context.Context, mask string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mask = strings.ToUpper(mask)
	out := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		if mask == "" || mask == "*" || strings.Contains(name, strings.Trim(mask, "*")) {
			out = append(out, name)
		}
	}
	return out, nil
}

// simRangeLimit mirrors the vendor's tendency to reject long lookbacks
// for metals and hourly-or-coarser timeframes.
const simRangeLimit = 500

func (s *Sim) fragileRange(symbol string, tf Timeframe) bool {
	up := strings.ToUpper(symbol)
	metal := strings.HasPrefix(up, "XAU") || strings.HasPrefix(up, "XAG")
	return metal || !tf.Intraday()
}

func (s *Sim) CopyRatesFromPos(ctx context.Context, symbol string, tf Timeframe, offset, count int) ([]Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.symbols[strings.ToUpper(symbol)]
	if !ok {
		return nil, ErrNotFound
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid parameters: count=%d", count)
	}
	if s.fragileRange(symbol, tf) && count > simRangeLimit {
		return nil, fmt.Errorf("invalid parameters: lookback too long for %s %s", symbol, tf.Name)
	}
	return s.synthBars(sym, tf, time.Now(), offset, count), nil
}

func (s *Sim) CopyRatesRange(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.symbols[strings.ToUpper(symbol)]
	if !ok {
		return nil, ErrNotFound
	}
	if !to.After(from) {
		return nil, fmt.Errorf("invalid parameters: empty range")
	}
	count := int(to.Sub(from) / tf.Step)
	if count <= 0 {
		count = 1
	}
	if s.fragileRange(symbol, tf) && count > simRangeLimit {
		return nil, fmt.Errorf("invalid parameters: range too long for %s %s", symbol, tf.Name)
	}
	return s.synthBars(sym, tf, to, 0, count), nil
}

// synthBars walks a deterministic pseudo-random series back from anchor.
func (s *Sim) synthBars(sym *simSymbol, tf Timeframe, anchor time.Time, offset, count int) []Bar {
	end := anchor.Truncate(tf.Step).Add(-time.Duration(offset) * tf.Step)
	bars := make([]Bar, count)
	px := sym.price
	for i := count - 1; i >= 0; i-- {
		t := end.Add(-time.Duration(count-i) * tf.Step)
		rng := rand.New(rand.NewSource(t.Unix() ^ int64(len(sym.info.Name))))
		drift := px * 0.0005 * (rng.Float64()*2 - 1)
		open := px - drift
		high := maxf(open, px) + px*0.0002*rng.Float64()
		low := minf(open, px) - px*0.0002*rng.Float64()
		bars[i] = Bar{
			Time:       t.Unix(),
			Open:       open,
			High:       high,
			Low:        low,
			Close:      px,
			TickVolume: int64(50 + rng.Intn(500)),
			Spread:     int(sym.spread / sym.info.Point),
			RealVolume: 0,
		}
		px = open
	}
	return bars
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func (s *Sim) OrderSend(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	switch req.Action {
	case TradeActionDeal:
		if req.Position != 0 {
			return s.closeDeal(req)
		}
		return s.openDeal(req)
	case TradeActionSLTP:
		return s.modifySLTP(req)
	case TradeActionRemove:
		o, ok := s.pending[req.Position]
		if !ok {
			return &TradeResult{Retcode: RetcodeInvalid, Comment: "order not found"}, nil
		}
		delete(s.pending, req.Position)
		return &TradeResult{Retcode: RetcodeDone, Order: o.Ticket, Comment: "canceled"}, nil
	default:
		return &TradeResult{Retcode: RetcodeInvalid, Comment: "unsupported action"}, nil
	}
}

func (s *Sim) openDeal(req TradeRequest) (*TradeResult, error) {
	sym, ok := s.symbols[strings.ToUpper(req.Symbol)]
	if !ok {
		return &TradeResult{Retcode: RetcodeReject, Comment: "unknown symbol"}, nil
	}
	if req.Volume < sym.info.VolumeMin || req.Volume > sym.info.VolumeMax {
		return &TradeResult{Retcode: RetcodeInvalid, Comment: "invalid volume"}, nil
	}

	fill := sym.price + sym.spread // ask
	if req.Type == OrderTypeSell {
		fill = sym.price // bid
	}

	s.nextTicket++
	ticket := s.nextTicket
	s.positions[ticket] = &Position{
		Ticket:     ticket,
		Symbol:     sym.info.Name,
		Type:       req.Type,
		Volume:     req.Volume,
		PriceOpen:  fill,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Time:       time.Now().Unix(),
		Comment:    req.Comment,
	}
	return &TradeResult{
		Retcode: RetcodeDone,
		Order:   ticket,
		Volume:  req.Volume,
		Price:   fill,
		Bid:     sym.price,
		Ask:     sym.price + sym.spread,
		Comment: "done",
	}, nil
}

func (s *Sim) closeDeal(req TradeRequest) (*TradeResult, error) {
	pos, ok := s.positions[req.Position]
	if !ok {
		return &TradeResult{Retcode: RetcodeInvalid, Comment: "position not found"}, nil
	}
	sym := s.symbols[pos.Symbol]

	fill := sym.price // closing a buy sells at bid
	if pos.Type == OrderTypeSell {
		fill = sym.price + sym.spread
	}

	if req.Volume > 0 && req.Volume < pos.Volume {
		pos.Volume -= req.Volume
	} else {
		s.account.Balance += positionProfit(pos, sym)
		delete(s.positions, req.Position)
	}
	return &TradeResult{
		Retcode: RetcodeDone,
		Order:   req.Position,
		Volume:  req.Volume,
		Price:   fill,
		Comment: "closed",
	}, nil
}

func (s *Sim) modifySLTP(req TradeRequest) (*TradeResult, error) {
	pos, ok := s.positions[req.Position]
	if !ok {
		return &TradeResult{Retcode: RetcodeInvalid, Comment: "position not found"}, nil
	}
	pos.StopLoss = req.StopLoss
	pos.TakeProfit = req.TakeProfit
	return &TradeResult{Retcode: RetcodeDone, Order: pos.Ticket, Comment: "modified"}, nil
}
